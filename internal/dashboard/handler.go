package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/mschirtzinger/todosync/internal/cache"
	"github.com/mschirtzinger/todosync/internal/command"
	"github.com/mschirtzinger/todosync/internal/schema"
	todosync "github.com/mschirtzinger/todosync/internal/sync"
	"github.com/mschirtzinger/todosync/internal/view"
)

// Handler bridges the store, the sync driver and the mutator to the
// WebSocket server, and answers the server's view requests from the store.
type Handler struct {
	server    *Server
	store     *cache.Store
	projector *view.Projector
	logger    *log.Logger
}

// NewHandler creates a handler and registers it as the server's source.
func NewHandler(server *Server, store *cache.Store, projector *view.Projector, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(os.Stderr, "[dashboard] ", log.LstdFlags)
	}
	if projector == nil {
		projector = view.NewProjector(nil, nil)
	}

	h := &Handler{
		server:    server,
		store:     store,
		projector: projector,
		logger:    logger,
	}
	server.SetSource(h)
	return h
}

// Attach subscribes the handler to store events. Call the returned function
// to detach.
func (h *Handler) Attach() (detach func()) {
	return h.store.Subscribe(h.OnStoreEvent)
}

// OnStoreEvent broadcasts one store change
func (h *Handler) OnStoreEvent(e cache.Event) {
	h.broadcast(MessageTypeSnapshotChanged, e)
}

// OnSyncComplete broadcasts the result of a bootstrap or refresh. It has the
// signature of daemon.Config.OnRefresh.
func (h *Handler) OnSyncComplete(res *todosync.Result, err error) {
	data := SyncCompleteData{}
	if res != nil {
		data.Cursor = res.Cursor
		data.FullSync = res.FullSync
		data.Counts = res.Counts
		data.Duration = res.Duration
	}
	if err != nil {
		data.Error = err.Error()
		h.logger.Printf("Sync failed: %v", err)
	}
	h.broadcast(MessageTypeSyncComplete, data)
}

// OnOutcome broadcasts the result of one command. It has the signature of
// command.Options.OnOutcome.
func (h *Handler) OnOutcome(o command.Outcome) {
	data := CommandOutcomeData{
		Type: o.Command.Type,
		Kind: o.Intent.Kind,
		ID:   o.ID,
		OK:   o.OK(),
	}
	if !o.OK() {
		n := command.FailureNotification(o)
		data.Failure = string(o.Failure)
		data.Title = n.Title
		data.Message = n.Message
	}
	h.broadcast(MessageTypeCommandOutcome, data)
}

// Stats implements Source.
func (h *Handler) Stats() StatsData {
	snap := h.store.Read()
	counts := make(map[schema.Kind]int, len(schema.AllKinds))
	for _, k := range schema.AllKinds {
		counts[k] = snap.Count(k)
	}
	return StatsData{Cursor: snap.Cursor, Counts: counts}
}

// ProjectView implements Source.
func (h *Handler) ProjectView(ctx context.Context, id view.ViewID) (view.Projection, error) {
	return h.projector.ProjectSnapshot(ctx, h.store.Read(), id)
}

func (h *Handler) broadcast(typ MessageType, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	h.server.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      data,
	})
}
