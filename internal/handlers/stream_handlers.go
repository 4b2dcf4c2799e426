package handlers

import (
	"strconv"
	"strings"

	"streamdb/internal/core/models"
	"streamdb/internal/streams"
)

// StreamHandlers implements the command surface of spec §6/§7 against an
// internal/streams.Registry. Each Handle method takes the command's
// arguments (the command name itself already stripped off) and returns
// the reply Value to write back.
type StreamHandlers struct {
	registry *streams.Registry
}

func NewStreamHandlers(registry *streams.Registry) *StreamHandlers {
	return &StreamHandlers{registry: registry}
}

func errValue(msg string) models.Value {
	return models.Value{Type: "error", Str: msg}
}

func errArgs(cmd string) models.Value {
	return errValue("ERR wrong number of arguments for '" + cmd + "' command")
}

func bulkValue(s string) models.Value {
	return models.Value{Type: "bulk", Bulk: s}
}

func intValue(n int) models.Value {
	return models.Value{Type: "integer", Num: n}
}

func entryToValue(e streams.Entry) models.Value {
	flat := e.Flat()
	fields := make([]models.Value, len(flat))
	for i, s := range flat {
		fields[i] = bulkValue(s)
	}
	return models.Value{Type: "array", Array: []models.Value{
		bulkValue(e.ID.String()),
		{Type: "array", Array: fields},
	}}
}

func entriesToValue(entries []streams.Entry) models.Value {
	arr := make([]models.Value, len(entries))
	for i, e := range entries {
		arr[i] = entryToValue(e)
	}
	return models.Value{Type: "array", Array: arr}
}

func streamResultValue(key string, entries []streams.Entry) models.Value {
	return models.Value{Type: "array", Array: []models.Value{
		bulkValue(key),
		entriesToValue(entries),
	}}
}

// HandleXAdd implements XADD key id field value [field value ...]
// (spec §4.1, §7).
func (h *StreamHandlers) HandleXAdd(args []models.Value) models.Value {
	if len(args) < 4 || (len(args)-2)%2 != 0 {
		return errArgs("xadd")
	}

	key := args[0].Bulk
	parsed, err := streams.ParseRequestID(args[1].Bulk)
	if err != nil {
		return errValue("ERR " + err.Error())
	}

	flat := make([]string, len(args)-2)
	for i, v := range args[2:] {
		flat[i] = v.Bulk
	}
	fields, err := streams.NewFields(flat)
	if err != nil {
		return errValue("ERR " + err.Error())
	}

	st := h.registry.GetOrCreate(key)
	id, err := st.Append(parsed, fields)
	if err != nil {
		return errValue("ERR " + err.Error())
	}

	return bulkValue(id.String())
}

// HandleXLen implements XLEN key.
func (h *StreamHandlers) HandleXLen(args []models.Value) models.Value {
	if len(args) != 1 {
		return errArgs("xlen")
	}

	st, ok := h.registry.Get(args[0].Bulk)
	if !ok {
		return intValue(0)
	}
	return intValue(st.Length())
}

// HandleXRange implements XRANGE key start end [COUNT count].
func (h *StreamHandlers) HandleXRange(args []models.Value) models.Value {
	if len(args) != 3 && len(args) != 5 {
		return errArgs("xrange")
	}

	start, err := streams.ParseRangeBound(args[1].Bulk)
	if err != nil {
		return errValue("ERR " + err.Error())
	}
	end, err := streams.ParseRangeBound(args[2].Bulk)
	if err != nil {
		return errValue("ERR " + err.Error())
	}

	count := -1
	if len(args) == 5 {
		if !strings.EqualFold(args[3].Bulk, "COUNT") {
			return errValue("ERR syntax error")
		}
		count, err = strconv.Atoi(args[4].Bulk)
		if err != nil {
			return errValue("ERR value is not an integer or out of range")
		}
	}

	st, ok := h.registry.Get(args[0].Bulk)
	if !ok {
		return models.Value{Type: "nullarray"}
	}

	entries := st.Range(start, end, count)
	if len(entries) == 0 {
		return models.Value{Type: "nullarray"}
	}
	return entriesToValue(entries)
}

// HandleXDel implements XDEL key id [id ...].
func (h *StreamHandlers) HandleXDel(args []models.Value) models.Value {
	if len(args) < 2 {
		return errArgs("xdel")
	}

	ids := make([]streams.EntryID, len(args)-1)
	for i, v := range args[1:] {
		id, err := streams.ParseID(v.Bulk)
		if err != nil {
			return errValue("ERR " + err.Error())
		}
		ids[i] = id
	}

	st, ok := h.registry.Get(args[0].Bulk)
	if !ok {
		return intValue(0)
	}
	return intValue(st.Delete(ids))
}

// parseCountAndBlock consumes any leading "COUNT n" / "BLOCK ms" option
// pair, in either order, from the front of args. BLOCK is accepted and
// validated but never acted on: this store never suspends a caller
// waiting on new entries (spec §9, left as an open question). It
// returns the parsed count (-1 if absent), the index of the first
// unconsumed argument, and a non-nil reply only when an option is
// missing its value or its value is not an integer.
func parseCountAndBlock(args []models.Value) (count, i int, errVal *models.Value) {
	count = -1
	for i < len(args) {
		switch {
		case strings.EqualFold(args[i].Bulk, "COUNT"):
			if i+1 >= len(args) {
				v := errValue("ERR syntax error")
				return 0, 0, &v
			}
			n, err := strconv.Atoi(args[i+1].Bulk)
			if err != nil {
				v := errValue("ERR value is not an integer or out of range")
				return 0, 0, &v
			}
			count = n
			i += 2
		case strings.EqualFold(args[i].Bulk, "BLOCK"):
			if i+1 >= len(args) {
				v := errValue("ERR syntax error")
				return 0, 0, &v
			}
			if _, err := strconv.Atoi(args[i+1].Bulk); err != nil {
				v := errValue("ERR timeout is not an integer or out of range")
				return 0, 0, &v
			}
			i += 2
		default:
			return count, i, nil
		}
	}
	return count, i, nil
}

// HandleXRead implements XREAD [COUNT count] [BLOCK ms] STREAMS
// key [key ...] id [id ...] (spec §6). Streams with no matching entries
// are omitted from the reply; if every stream is empty, XREAD returns a
// null array.
func (h *StreamHandlers) HandleXRead(args []models.Value) models.Value {
	if len(args) < 3 {
		return errArgs("xread")
	}

	count, i, errVal := parseCountAndBlock(args)
	if errVal != nil {
		return *errVal
	}

	if i >= len(args) || !strings.EqualFold(args[i].Bulk, "STREAMS") {
		return errValue("ERR syntax error")
	}
	i++

	remaining := args[i:]
	if len(remaining) == 0 || len(remaining)%2 != 0 {
		return errValue("ERR Unbalanced XREAD list of streams: for each stream key an ID or '$' must be specified.")
	}

	numKeys := len(remaining) / 2
	results := make([]models.Value, 0, numKeys)

	for k := 0; k < numKeys; k++ {
		key := remaining[k].Bulk
		idToken := remaining[numKeys+k].Bulk
		var cursor streams.EntryID
		if idToken != "$" {
			var err error
			cursor, err = streams.ParseRangeBound(idToken)
			if err != nil {
				return errValue("ERR " + err.Error())
			}
		}

		st, ok := h.registry.Get(key)
		if !ok {
			continue
		}
		if idToken == "$" {
			cursor = st.LastID()
		}
		entries := st.After(cursor, count)
		if len(entries) == 0 {
			continue
		}
		results = append(results, streamResultValue(key, entries))
	}

	if len(results) == 0 {
		return models.Value{Type: "nullarray"}
	}
	return models.Value{Type: "array", Array: results}
}

// HandleXGroup implements XGROUP CREATE key group start-id (spec §6).
// CREATE lazily creates the stream if it does not yet exist, the same
// as XADD does, rather than requiring it up front.
func (h *StreamHandlers) HandleXGroup(args []models.Value) models.Value {
	if len(args) == 0 {
		return errArgs("xgroup")
	}

	if !strings.EqualFold(args[0].Bulk, "CREATE") {
		return errValue("ERR unknown XGROUP subcommand")
	}
	if len(args) != 4 {
		return errArgs("xgroup")
	}

	key, group, startToken := args[1].Bulk, args[2].Bulk, args[3].Bulk

	st := h.registry.GetOrCreate(key)
	created, err := st.CreateGroup(group, startToken)
	if err != nil {
		return errValue("ERR " + err.Error())
	}
	if !created {
		return errValue("BUSYGROUP Consumer Group name already exists")
	}
	return models.Value{Type: "string", Str: "OK"}
}

// HandleXReadGroup implements
// XREADGROUP GROUP group consumer [COUNT count] [BLOCK ms] STREAMS
// key [key ...] id [id ...] (spec §4.3, §6). ">" requests newly
// delivered entries; any other id replays the consumer's own pending
// entries with a strictly greater id. A stream that does not exist, or
// that has no group by the given name, is skipped from the reply just
// like a stream that yielded no entries (spec §7's NoSuchGroup) rather
// than failing the whole command.
func (h *StreamHandlers) HandleXReadGroup(args []models.Value) models.Value {
	if len(args) < 5 || !strings.EqualFold(args[0].Bulk, "GROUP") {
		return errArgs("xreadgroup")
	}

	group, consumer := args[1].Bulk, args[2].Bulk
	count, i, errVal := parseCountAndBlock(args[3:])
	if errVal != nil {
		return *errVal
	}
	i += 3

	if i >= len(args) || !strings.EqualFold(args[i].Bulk, "STREAMS") {
		return errValue("ERR syntax error")
	}
	i++

	remaining := args[i:]
	if len(remaining) == 0 || len(remaining)%2 != 0 {
		return errValue("ERR Unbalanced XREADGROUP list of streams: for each stream key an ID or '>' must be specified.")
	}

	numKeys := len(remaining) / 2
	results := make([]models.Value, 0, numKeys)

	for k := 0; k < numKeys; k++ {
		key := remaining[k].Bulk
		idToken := remaining[numKeys+k].Bulk

		st, ok := h.registry.Get(key)
		if !ok {
			continue
		}
		grp, ok := st.GetGroup(group)
		if !ok {
			continue
		}

		var entries []streams.Entry
		if idToken == ">" {
			candidates := st.After(grp.LastDelivered(), -1)
			entries = grp.Deliver(consumer, candidates, count)
		} else {
			since, err := streams.ParseID(idToken)
			if err != nil {
				return errValue("ERR " + err.Error())
			}
			entries = replayPending(st, grp, consumer, since, count)
		}

		if len(entries) == 0 {
			continue
		}
		results = append(results, streamResultValue(key, entries))
	}

	if len(results) == 0 {
		return models.Value{Type: "nullarray"}
	}
	return models.Value{Type: "array", Array: results}
}

// replayPending returns the consumer's own pending entries with id
// greater than since, up to count (unlimited if negative), looking each
// payload up from the owning stream. An id whose entry has since been
// XDEL'd is reported with no fields, matching the semantics of a PEL
// that only ever stores IDs (spec §9).
func replayPending(st *streams.Stream, grp *streams.ConsumerGroup, consumer string, since streams.EntryID, count int) []streams.Entry {
	records := grp.PendingEntries(consumer)
	entries := make([]streams.Entry, 0, len(records))
	for _, rec := range records {
		if !rec.ID.Greater(since) {
			continue
		}
		if count >= 0 && len(entries) == count {
			break
		}
		if found := st.Range(rec.ID, rec.ID, 1); len(found) == 1 {
			entries = append(entries, found[0])
		} else {
			entries = append(entries, streams.Entry{ID: rec.ID})
		}
	}
	return entries
}

// HandleXAck implements XACK key group consumer id [id ...]. Only ids
// currently owned by consumer are acknowledged (spec §9's corrected,
// per-owner-only ack semantics).
func (h *StreamHandlers) HandleXAck(args []models.Value) models.Value {
	if len(args) < 4 {
		return errArgs("xack")
	}

	key, group, consumer := args[0].Bulk, args[1].Bulk, args[2].Bulk

	ids := make([]streams.EntryID, len(args)-3)
	for i, v := range args[3:] {
		id, err := streams.ParseID(v.Bulk)
		if err != nil {
			return errValue("ERR " + err.Error())
		}
		ids[i] = id
	}

	st, ok := h.registry.Get(key)
	if !ok {
		return intValue(0)
	}
	grp, ok := st.GetGroup(group)
	if !ok {
		return intValue(0)
	}
	return intValue(grp.Ack(consumer, ids))
}
