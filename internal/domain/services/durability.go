package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/domain/ports"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// walClock hands out strictly increasing millisecond timestamps for one
// namespace. WAL keys embed the timestamp, so two entries in the same
// millisecond would collide; the clock bumps forward instead of repeating.
type walClock struct {
	mu   sync.Mutex
	last int64
}

// Next returns a millisecond timestamp greater than every previous result.
func (c *walClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := timeNow().UnixMilli()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}

// Durability persists a store's state to a blob store as full snapshots and
// an append-only WAL, and exports/imports the flat JSONL form. It depends
// only on the store's enumeration and write operations, never on a concrete
// provider.
type Durability struct {
	store     ports.Store
	blobs     ports.BlobStore
	namespace string
	clock     walClock
}

// NewDurability creates a Durability service for one namespace.
func NewDurability(store ports.Store, blobs ports.BlobStore, namespace string) *Durability {
	return &Durability{store: store, blobs: blobs, namespace: namespace}
}

// SnapshotOptions controls CreateSnapshot.
type SnapshotOptions struct {
	// Timestamped writes to snapshots/{ns}/{millis}.json instead of the
	// fixed latest key.
	Timestamped bool
}

// SnapshotInfo describes a written or restored snapshot.
type SnapshotInfo struct {
	Key       string `json:"key"`
	Size      int    `json:"size"`
	Timestamp int64  `json:"timestamp"`
	Nouns     int    `json:"nouns"`
	Verbs     int    `json:"verbs"`
	Things    int    `json:"things"`
	Actions   int    `json:"actions"`
}

// CreateSnapshot serializes the full state of the namespace and writes it
// to the blob store, returning the key and byte size.
//
// The enumeration is not a point-in-time cut: things are listed per noun
// sequentially, so mutations racing the snapshot can produce a state no
// single moment ever held. This fuzzy snapshot is an accepted design
// choice; WAL replay after restore reconverges the tail.
func (d *Durability) CreateSnapshot(ctx context.Context, opts SnapshotOptions) (*SnapshotInfo, error) {
	doc, err := d.collect(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	key := SnapshotLatestKey(d.namespace)
	if opts.Timestamped {
		key = SnapshotKey(d.namespace, doc.Timestamp)
	}
	if err := d.blobs.Put(ctx, key, data); err != nil {
		return nil, entities.NewBackendError("put snapshot", err)
	}

	return &SnapshotInfo{
		Key:       key,
		Size:      len(data),
		Timestamp: doc.Timestamp,
		Nouns:     len(doc.Nouns),
		Verbs:     len(doc.Verbs),
		Things:    len(doc.Things),
		Actions:   len(doc.Actions),
	}, nil
}

// collect enumerates the namespace into a snapshot document.
func (d *Durability) collect(ctx context.Context) (*entities.SnapshotDocument, error) {
	doc := &entities.SnapshotDocument{
		Version:   entities.SnapshotVersion,
		Timestamp: d.clock.Next(),
		Namespace: d.namespace,
		Nouns:     []entities.Noun{},
		Verbs:     []entities.Verb{},
		Things:    []entities.Thing{},
		Actions:   []entities.Action{},
	}

	nouns, err := d.store.ListNouns(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing nouns: %w", err)
	}
	doc.Nouns = nouns

	verbs, err := d.store.ListVerbs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing verbs: %w", err)
	}
	doc.Verbs = verbs

	for _, noun := range nouns {
		offset := 0
		for {
			page, err := d.store.List(ctx, noun.Name, ports.ListOptions{
				Limit:  ports.MaxListLimit,
				Offset: offset,
			})
			if err != nil {
				return nil, fmt.Errorf("listing %s things: %w", noun.Name, err)
			}
			for _, thing := range page.Items {
				doc.Things = append(doc.Things, *thing)
			}
			if !page.HasMore {
				break
			}
			offset += len(page.Items)
		}
	}

	actions, err := d.store.ListActions(ctx, ports.ActionFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	doc.Actions = actions

	return doc, nil
}

// RestoreSnapshot loads a snapshot blob and replays it into the store in
// dependency order: nouns, verbs, things, actions. Key "" means the fixed
// latest key. Fails with entities.ErrNotFound when the blob is absent.
func (d *Durability) RestoreSnapshot(ctx context.Context, key string) (*SnapshotInfo, error) {
	if key == "" {
		key = SnapshotLatestKey(d.namespace)
	}

	data, err := d.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, fmt.Errorf("snapshot %s: %w", key, entities.ErrNotFound)
		}
		return nil, entities.NewBackendError("get snapshot", err)
	}

	var doc entities.SnapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", key, err)
	}

	if err := d.applyDocument(ctx, &doc); err != nil {
		return nil, err
	}

	return &SnapshotInfo{
		Key:       key,
		Size:      len(data),
		Timestamp: doc.Timestamp,
		Nouns:     len(doc.Nouns),
		Verbs:     len(doc.Verbs),
		Things:    len(doc.Things),
		Actions:   len(doc.Actions),
	}, nil
}

// applyDocument replays a snapshot document through the store's ordinary
// write paths, preserving ids and timestamps.
func (d *Durability) applyDocument(ctx context.Context, doc *entities.SnapshotDocument) error {
	for _, noun := range doc.Nouns {
		if _, err := d.store.DefineNoun(ctx, ports.NounSpec{
			Name:        noun.Name,
			Description: noun.Description,
			Singular:    noun.Singular,
			Plural:      noun.Plural,
			Schema:      noun.Schema,
			CreatedAt:   noun.CreatedAt,
		}); err != nil {
			return fmt.Errorf("restoring noun %s: %w", noun.Name, err)
		}
	}

	for _, verb := range doc.Verbs {
		if _, err := d.store.DefineVerb(ctx, ports.VerbSpec{
			Name:        verb.Name,
			Description: verb.Description,
			Inverse:     verb.Inverse,
			CreatedAt:   verb.CreatedAt,
		}); err != nil {
			return fmt.Errorf("restoring verb %s: %w", verb.Name, err)
		}
	}

	for _, thing := range doc.Things {
		if _, err := d.store.Create(ctx, thing.Noun, thing.Data, ports.CreateOptions{
			ID:        thing.ID,
			CreatedAt: thing.CreatedAt,
			UpdatedAt: thing.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("restoring thing %s: %w", thing.ID, err)
		}
	}

	for _, action := range doc.Actions {
		if _, err := d.store.Perform(ctx, action.Verb, action.Subject, action.Object, action.Data, ports.PerformOptions{
			ID:          action.ID,
			Status:      action.Status,
			CreatedAt:   action.CreatedAt,
			CompletedAt: action.CompletedAt,
		}); err != nil {
			return fmt.Errorf("restoring action %s: %w", action.ID, err)
		}
	}

	return nil
}

// AppendWAL writes one WAL entry to the blob store. The entry's timestamp
// is assigned from the namespace clock when unset; the key embeds it. A put
// failure is fatal to the triggering operation: losing a WAL entry is a
// data-loss bug, so the write must fail rather than skip durability.
func (d *Durability) AppendWAL(ctx context.Context, entry entities.WALEntry) (int64, error) {
	if entry.Timestamp == 0 {
		entry.Timestamp = d.clock.Next()
	}
	entry.Namespace = d.namespace

	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("encoding wal entry: %w", err)
	}
	key := WALKey(d.namespace, entry.Timestamp)
	if err := d.blobs.Put(ctx, key, data); err != nil {
		return 0, entities.NewBackendError("append wal", err)
	}
	return entry.Timestamp, nil
}

// ReplaySkip records one WAL key or entry that replay could not apply.
type ReplaySkip struct {
	Key string `json:"key"`
	Err string `json:"error"`
}

// ReplayResult reports what a WAL replay actually did. Applied below the
// number of listed entries means partial recovery.
type ReplayResult struct {
	Applied int          `json:"applied"`
	Skipped []ReplaySkip `json:"skipped,omitempty"`
}

// ReplayWAL lists the namespace's WAL entries, keeps those with an embedded
// timestamp strictly after afterMillis, sorts ascending and applies each
// mutation in order. A corrupt or forward-referencing entry is recorded and
// skipped so it cannot block recovery of the rest.
func (d *Durability) ReplayWAL(ctx context.Context, afterMillis int64) (*ReplayResult, error) {
	keys, err := d.blobs.List(ctx, WALPrefix(d.namespace))
	if err != nil {
		return nil, entities.NewBackendError("list wal", err)
	}

	result := &ReplayResult{}

	type walRef struct {
		key    string
		millis int64
	}
	refs := make([]walRef, 0, len(keys))
	for _, key := range keys {
		millis, err := ParseWALKey(d.namespace, key)
		if err != nil {
			result.Skipped = append(result.Skipped, ReplaySkip{Key: key, Err: err.Error()})
			continue
		}
		if millis <= afterMillis {
			continue
		}
		refs = append(refs, walRef{key: key, millis: millis})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].millis < refs[j].millis })

	for _, ref := range refs {
		data, err := d.blobs.Get(ctx, ref.key)
		if err != nil {
			result.Skipped = append(result.Skipped, ReplaySkip{Key: ref.key, Err: err.Error()})
			continue
		}
		var entry entities.WALEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			result.Skipped = append(result.Skipped, ReplaySkip{Key: ref.key, Err: err.Error()})
			continue
		}
		if err := d.applyEntry(ctx, entry); err != nil {
			result.Skipped = append(result.Skipped, ReplaySkip{Key: ref.key, Err: err.Error()})
			continue
		}
		result.Applied++
	}

	return result, nil
}

// applyEntry dispatches one WAL entry to the corresponding store mutation.
// The switch is exhaustive over the closed WALOp set.
func (d *Durability) applyEntry(ctx context.Context, entry entities.WALEntry) error {
	switch entry.Op {
	case entities.WALDefineNoun:
		if entry.Noun == nil {
			return fmt.Errorf("%s entry missing noun payload", entry.Op)
		}
		_, err := d.store.DefineNoun(ctx, ports.NounSpec{
			Name:        entry.Noun.Name,
			Description: entry.Noun.Description,
			Singular:    entry.Noun.Singular,
			Plural:      entry.Noun.Plural,
			Schema:      entry.Noun.Schema,
			CreatedAt:   entry.Noun.CreatedAt,
		})
		return err
	case entities.WALDefineVerb:
		if entry.Verb == nil {
			return fmt.Errorf("%s entry missing verb payload", entry.Op)
		}
		_, err := d.store.DefineVerb(ctx, ports.VerbSpec{
			Name:        entry.Verb.Name,
			Description: entry.Verb.Description,
			Inverse:     entry.Verb.Inverse,
			CreatedAt:   entry.Verb.CreatedAt,
		})
		return err
	case entities.WALCreate:
		if entry.Thing == nil {
			return fmt.Errorf("%s entry missing thing payload", entry.Op)
		}
		_, err := d.store.Create(ctx, entry.Thing.Noun, entry.Thing.Data, ports.CreateOptions{
			ID:        entry.Thing.ID,
			CreatedAt: entry.Thing.CreatedAt,
			UpdatedAt: entry.Thing.UpdatedAt,
		})
		if errors.Is(err, entities.ErrConflict) {
			// Already applied; replay is idempotent over creates.
			return nil
		}
		return err
	case entities.WALUpdate:
		opts := ports.UpdateOptions{}
		if entry.UpdatedAt != nil {
			opts.UpdatedAt = *entry.UpdatedAt
		}
		_, err := d.store.Update(ctx, entry.ThingID, entry.Data, opts)
		return err
	case entities.WALDelete:
		_, err := d.store.Delete(ctx, entry.ThingID)
		return err
	case entities.WALPerform:
		if entry.Action == nil {
			return fmt.Errorf("%s entry missing action payload", entry.Op)
		}
		_, err := d.store.Perform(ctx, entry.Action.Verb, entry.Action.Subject, entry.Action.Object, entry.Action.Data, ports.PerformOptions{
			ID:          entry.Action.ID,
			Status:      entry.Action.Status,
			CreatedAt:   entry.Action.CreatedAt,
			CompletedAt: entry.Action.CompletedAt,
		})
		if errors.Is(err, entities.ErrConflict) {
			return nil
		}
		return err
	case entities.WALTransition:
		_, err := d.store.Transition(ctx, entry.ActionID, entry.Status)
		return err
	case entities.WALPurge:
		_, err := d.store.Purge(ctx, entry.ActionID)
		return err
	default:
		return fmt.Errorf("unknown wal op %q", entry.Op)
	}
}

// CompactWAL deletes WAL entries with timestamps strictly before
// beforeMillis, typically the latest snapshot's timestamp. Entries at or
// after the cutoff are never deleted. Returns the number of deleted keys.
func (d *Durability) CompactWAL(ctx context.Context, beforeMillis int64) (int, error) {
	keys, err := d.blobs.List(ctx, WALPrefix(d.namespace))
	if err != nil {
		return 0, entities.NewBackendError("list wal", err)
	}

	var doomed []string
	for _, key := range keys {
		millis, err := ParseWALKey(d.namespace, key)
		if err != nil {
			// Unparseable keys are left alone; compaction only removes
			// entries it can prove are old.
			continue
		}
		if millis < beforeMillis {
			doomed = append(doomed, key)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	if err := d.blobs.Delete(ctx, doomed); err != nil {
		return 0, entities.NewBackendError("delete wal", err)
	}
	return len(doomed), nil
}

// exportRecord is one tagged JSONL line.
type exportRecord struct {
	Type entities.ExportRecordType `json:"type"`
	Data json.RawMessage           `json:"data"`
}

// ExportInfo reports what an export wrote.
type ExportInfo struct {
	Nouns   int `json:"nouns"`
	Verbs   int `json:"verbs"`
	Things  int `json:"things"`
	Actions int `json:"actions"`
	Bytes   int `json:"bytes"`
}

// ExportJSONL streams the namespace to w as one tagged JSON object per
// line. Nouns and verbs are written before things and actions so the file
// can be re-imported in file order without forward references.
func (d *Durability) ExportJSONL(ctx context.Context, w io.Writer) (*ExportInfo, error) {
	doc, err := d.collect(ctx)
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriter(w)
	info := &ExportInfo{
		Nouns:   len(doc.Nouns),
		Verbs:   len(doc.Verbs),
		Things:  len(doc.Things),
		Actions: len(doc.Actions),
	}

	write := func(typ entities.ExportRecordType, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s record: %w", typ, err)
		}
		line, err := json.Marshal(exportRecord{Type: typ, Data: data})
		if err != nil {
			return fmt.Errorf("encoding %s line: %w", typ, err)
		}
		n, err := bw.Write(append(line, '\n'))
		info.Bytes += n
		return err
	}

	for i := range doc.Nouns {
		if err := write(entities.RecordNoun, doc.Nouns[i]); err != nil {
			return nil, err
		}
	}
	for i := range doc.Verbs {
		if err := write(entities.RecordVerb, doc.Verbs[i]); err != nil {
			return nil, err
		}
	}
	for i := range doc.Things {
		if err := write(entities.RecordThing, doc.Things[i]); err != nil {
			return nil, err
		}
	}
	for i := range doc.Actions {
		if err := write(entities.RecordAction, doc.Actions[i]); err != nil {
			return nil, err
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("flushing export: %w", err)
	}
	return info, nil
}

// ExportToBlob writes the JSONL export to the blob store under a
// caller-supplied key.
func (d *Durability) ExportToBlob(ctx context.Context, key string) (*ExportInfo, error) {
	var buf bytes.Buffer
	info, err := d.ExportJSONL(ctx, &buf)
	if err != nil {
		return nil, err
	}
	if err := d.blobs.Put(ctx, key, buf.Bytes()); err != nil {
		return nil, entities.NewBackendError("put export", err)
	}
	return info, nil
}

// ImportResult reports what an import actually applied.
type ImportResult struct {
	Applied int          `json:"applied"`
	Skipped []ReplaySkip `json:"skipped,omitempty"`
}

// ImportJSONL applies tagged JSONL records from r strictly in file order.
// It does not reorder: a record referencing a not-yet-imported noun, verb
// or thing fails with NotFound and is recorded as skipped; exporting in
// dependency order is the producer's responsibility. Blank and malformed
// lines are skipped, never fatal.
func (d *Durability) ImportJSONL(ctx context.Context, r io.Reader) (*ImportResult, error) {
	result := &ImportResult{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := d.importLine(ctx, line); err != nil {
			result.Skipped = append(result.Skipped, ReplaySkip{
				Key: fmt.Sprintf("line %d", lineNo),
				Err: err.Error(),
			})
			continue
		}
		result.Applied++
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("scanning import: %w", err)
	}
	return result, nil
}

// ImportFromBlob reads a JSONL export from the blob store and imports it.
func (d *Durability) ImportFromBlob(ctx context.Context, key string) (*ImportResult, error) {
	data, err := d.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, fmt.Errorf("export %s: %w", key, entities.ErrNotFound)
		}
		return nil, entities.NewBackendError("get export", err)
	}
	return d.ImportJSONL(ctx, bytes.NewReader(data))
}

// importLine applies one tagged JSONL record.
func (d *Durability) importLine(ctx context.Context, line []byte) error {
	var rec exportRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return fmt.Errorf("malformed line: %w", err)
	}

	switch rec.Type {
	case entities.RecordNoun:
		var noun entities.Noun
		if err := json.Unmarshal(rec.Data, &noun); err != nil {
			return fmt.Errorf("malformed noun record: %w", err)
		}
		_, err := d.store.DefineNoun(ctx, ports.NounSpec{
			Name:        noun.Name,
			Description: noun.Description,
			Singular:    noun.Singular,
			Plural:      noun.Plural,
			Schema:      noun.Schema,
			CreatedAt:   noun.CreatedAt,
		})
		return err
	case entities.RecordVerb:
		var verb entities.Verb
		if err := json.Unmarshal(rec.Data, &verb); err != nil {
			return fmt.Errorf("malformed verb record: %w", err)
		}
		_, err := d.store.DefineVerb(ctx, ports.VerbSpec{
			Name:        verb.Name,
			Description: verb.Description,
			Inverse:     verb.Inverse,
			CreatedAt:   verb.CreatedAt,
		})
		return err
	case entities.RecordThing:
		var thing entities.Thing
		if err := json.Unmarshal(rec.Data, &thing); err != nil {
			return fmt.Errorf("malformed thing record: %w", err)
		}
		_, err := d.store.Create(ctx, thing.Noun, thing.Data, ports.CreateOptions{
			ID:        thing.ID,
			CreatedAt: thing.CreatedAt,
			UpdatedAt: thing.UpdatedAt,
		})
		return err
	case entities.RecordAction:
		var action entities.Action
		if err := json.Unmarshal(rec.Data, &action); err != nil {
			return fmt.Errorf("malformed action record: %w", err)
		}
		_, err := d.store.Perform(ctx, action.Verb, action.Subject, action.Object, action.Data, ports.PerformOptions{
			ID:          action.ID,
			Status:      action.Status,
			CreatedAt:   action.CreatedAt,
			CompletedAt: action.CompletedAt,
		})
		return err
	default:
		return fmt.Errorf("unknown record type %q", rec.Type)
	}
}
