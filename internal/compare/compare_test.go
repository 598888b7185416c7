package compare

import (
	"slices"
	"testing"
	"time"

	"github.com/mschirtzinger/todosync/internal/schema"
)

func task(id string, opts ...func(*schema.Task)) schema.Task {
	t := schema.Task{ID: id, Content: id, Priority: schema.PriorityDefault}
	for _, o := range opts {
		o(&t)
	}
	return t
}

func withDue(date string) func(*schema.Task) {
	return func(t *schema.Task) { t.Due = &schema.Due{Date: date} }
}

func ids(tasks []schema.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func sorted(tasks []schema.Task, c Comparator) []string {
	s := slices.Clone(tasks)
	slices.SortStableFunc(s, c)
	return ids(s)
}

func TestByDateExactTimeBeforeDateOnly(t *testing.T) {
	a := task("A", withDue("2024-01-01T09:00"))
	b := task("B", withDue("2024-01-01"))

	c := ByDate(time.UTC)
	if got := c(a, b); got != -1 {
		t.Errorf("ByDate(exact, date-only) = %d, want -1", got)
	}
	if got := c(b, a); got != 1 {
		t.Errorf("ByDate(date-only, exact) = %d, want 1", got)
	}
	if got := sorted([]schema.Task{b, a}, c); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("sorted = %v, want [A B]", got)
	}
}

func TestByDateMissingDueLast(t *testing.T) {
	tasks := []schema.Task{
		task("none"),
		task("late", withDue("2024-05-01")),
		task("early", withDue("2024-01-01T18:00")),
		task("none2"),
		task("mid", withDue("2024-02-01")),
	}

	got := sorted(tasks, ByDate(time.UTC))
	want := []string{"early", "mid", "late", "none", "none2"}
	if !slices.Equal(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}

func TestByDateExactTimesByTimestamp(t *testing.T) {
	tasks := []schema.Task{
		task("noon", withDue("2024-01-01T12:00:00")),
		task("nine", withDue("2024-01-01T09:00:00")),
		task("date", withDue("2024-01-01")),
	}
	got := sorted(tasks, ByDate(time.UTC))
	want := []string{"nine", "noon", "date"}
	if !slices.Equal(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}

func TestByDateEarlierDayBeatsExactTime(t *testing.T) {
	a := task("A", withDue("2024-01-02T08:00"))
	b := task("B", withDue("2024-01-01"))
	if got := ByDate(time.UTC)(a, b); got != 1 {
		t.Errorf("ByDate = %d, want 1 (earlier day first)", got)
	}
}

func TestByPriorityDescending(t *testing.T) {
	withPriority := func(p int) func(*schema.Task) {
		return func(t *schema.Task) { t.Priority = p }
	}
	tasks := []schema.Task{
		task("p1", withPriority(1)),
		task("p4", withPriority(4)),
		task("p2", withPriority(2)),
	}
	got := sorted(tasks, ByPriority())
	if want := []string{"p4", "p2", "p1"}; !slices.Equal(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}

func TestByNameCaseInsensitive(t *testing.T) {
	tasks := []schema.Task{task("banana"), task("Apple"), task("cherry")}
	got := sorted(tasks, ByName())
	if want := []string{"Apple", "banana", "cherry"}; !slices.Equal(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
	if got := ByName()(task("abc"), task("ABC")); got != 0 {
		t.Errorf("ByName(abc, ABC) = %d, want 0", got)
	}
}

func TestByAssigneeUnassignedIsAlphabetical(t *testing.T) {
	collaborators := []schema.Collaborator{
		{ID: "u1", FullName: "Zoe"},
		{ID: "u2", FullName: "Adam"},
	}
	assign := func(id string) func(*schema.Task) {
		return func(t *schema.Task) { t.ResponsibleUID = schema.StringPtr(id) }
	}
	tasks := []schema.Task{
		task("zoe", assign("u1")),
		task("nobody"),
		task("ghost", assign("u404")),
		task("adam", assign("u2")),
	}

	got := sorted(tasks, ByAssignee(collaborators))
	want := []string{"adam", "nobody", "ghost", "zoe"}
	if !slices.Equal(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}

func TestByProjectUnknownIsEmpty(t *testing.T) {
	projects := []schema.Project{{ID: "p1", Name: "Work"}, {ID: "p2", Name: "Home"}}
	inProject := func(id string) func(*schema.Task) {
		return func(t *schema.Task) { t.ProjectID = id }
	}
	tasks := []schema.Task{
		task("work", inProject("p1")),
		task("home", inProject("p2")),
		task("lost", inProject("p9")),
	}
	got := sorted(tasks, ByProject(projects))
	if want := []string{"lost", "home", "work"}; !slices.Equal(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}

func TestFlipKeepsEqualElementsEqual(t *testing.T) {
	a := task("a", withDue("2024-01-01"))
	b := task("b", withDue("2024-01-01"))

	desc := Flip(ByDate(time.UTC), true)
	if got := desc(a, b); got != 0 {
		t.Errorf("flipped equal = %d, want 0", got)
	}

	c := task("c", withDue("2024-02-01"))
	if got := desc(a, c); got != 1 {
		t.Errorf("flipped earlier-vs-later = %d, want 1", got)
	}
	if got := Flip(ByPriority(), false)(a, b); got != 0 {
		t.Errorf("ascending equal = %d, want 0", got)
	}
}

func TestDefaultKeepsInsertionOrder(t *testing.T) {
	tasks := []schema.Task{task("3"), task("1"), task("2")}
	got := sorted(tasks, Flip(Default(), true))
	if want := []string{"3", "1", "2"}; !slices.Equal(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}
