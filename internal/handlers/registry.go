package handlers

import (
	"streamdb/internal/core/models"
	"streamdb/internal/streams"
)

// CommandHandler executes one command's arguments (with the command
// name already stripped) and returns the reply Value.
type CommandHandler func(args []models.Value) models.Value

// Registry maps upper-cased command names to their handler, the
// dispatcher of spec §4.6/§7.
type Registry struct {
	handlers       map[string]CommandHandler
	streamHandlers *StreamHandlers
}

func NewRegistry(streamRegistry *streams.Registry) *Registry {
	r := &Registry{
		handlers:       make(map[string]CommandHandler),
		streamHandlers: NewStreamHandlers(streamRegistry),
	}

	r.registerHandlers()
	return r
}

func (r *Registry) registerHandlers() {
	r.handlers["PING"] = HandlePing

	r.handlers["XADD"] = r.streamHandlers.HandleXAdd
	r.handlers["XLEN"] = r.streamHandlers.HandleXLen
	r.handlers["XRANGE"] = r.streamHandlers.HandleXRange
	r.handlers["XDEL"] = r.streamHandlers.HandleXDel
	r.handlers["XREAD"] = r.streamHandlers.HandleXRead
	r.handlers["XGROUP"] = r.streamHandlers.HandleXGroup
	r.handlers["XREADGROUP"] = r.streamHandlers.HandleXReadGroup
	r.handlers["XACK"] = r.streamHandlers.HandleXAck
}

// GetHandler looks up the handler registered for cmd, which must
// already be upper-cased.
func (r *Registry) GetHandler(cmd string) (CommandHandler, bool) {
	handler, exists := r.handlers[cmd]
	return handler, exists
}

// HandlePing implements PING [message].
func HandlePing(args []models.Value) models.Value {
	switch len(args) {
	case 0:
		return models.Value{Type: "string", Str: "PONG"}
	case 1:
		return bulkValue(args[0].Bulk)
	default:
		return errArgs("ping")
	}
}
