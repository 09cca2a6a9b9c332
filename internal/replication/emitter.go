package replication

import (
	"encoding/json"
	"time"

	"github.com/MeltanoLabs/tap-mongodb/internal/model"
)

// Emitter finalizes a NormalizedRecord into the wire-level RecordMessage
// (C8): it pops the private _sdc_extracted_at field into the message's
// time_extracted, masks deselected catalog properties, and marshals the
// record to the plain map the sink expects.
//
// Grounded on the original tap's _generate_record_messages: pop
// _sdc_extracted_at, pop_deselected_record_properties, then hand the
// remaining dict to the protocol's RecordMessage. Uses encoding/json
// here (not a third-party codec) because the wire shape is fixed by
// the record protocol itself, not a choice this component makes.
type Emitter struct {
	entry *model.CatalogEntry
}

// NewEmitter builds an emitter scoped to entry's catalog metadata.
func NewEmitter(entry *model.CatalogEntry) *Emitter {
	return &Emitter{entry: entry}
}

// Emit finalizes rec into a RecordMessage. now is the fallback
// extraction timestamp used when rec carries no _sdc_extracted_at
// (the incremental reader's case); when add_record_metadata is
// enabled, the log-based reader sets SdcExtractedAt to the event's
// cluster time before this is called.
func (e *Emitter) Emit(rec *model.NormalizedRecord, now time.Time) (*model.RecordMessage, error) {
	extracted := now
	if rec.SdcExtractedAt != nil {
		extracted = *rec.SdcExtractedAt
	}

	payload, err := toMap(rec)
	if err != nil {
		return nil, err
	}

	delete(payload, "_sdc_extracted_at")
	e.maskDeselected(payload)

	return &model.RecordMessage{
		Type:          "RECORD",
		Stream:        e.entry.StreamID,
		Record:        payload,
		TimeExtracted: extracted,
	}, nil
}

// maskDeselected removes top-level properties the catalog has
// deselected, leaving everything else untouched (no type conformance
// by default, matching spec.md §4.8's pass-through behavior).
func (e *Emitter) maskDeselected(payload map[string]any) {
	if e.entry.SelectedProperties == nil {
		return
	}
	for key := range payload {
		if !e.entry.IsSelected(key) {
			delete(payload, key)
		}
	}
}

func toMap(rec *model.NormalizedRecord) (map[string]any, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
