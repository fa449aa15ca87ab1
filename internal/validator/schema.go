package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
)

// SchemaEntry is one question id contributed by a block.
type SchemaEntry struct {
	ID   models.QuestionID
	Type models.QuestionType
}

// QuestionBlock is a decoded question block. Each authoring shape has its own
// concrete type; blocks that match no shape decode to UnrecognizedBlock.
type QuestionBlock interface {
	// Entries lists the question ids the block registers, in order.
	Entries() []SchemaEntry
}

// ItemsBlock carries an items list whose entries identify themselves.
type ItemsBlock struct {
	Type    models.QuestionType
	IDs     []models.QuestionID
	Missing int
}

// MatchingBlock numbers its data.items sequentially from a start index.
type MatchingBlock struct {
	Type  models.QuestionType
	Base  float64
	Count int
}

// DropZoneBlock is a labeling block whose drop zones identify themselves.
type DropZoneBlock struct {
	Type    models.QuestionType
	IDs     []models.QuestionID
	Missing int
}

// NestedQuestionsBlock carries data.questions, each with its own id.
type NestedQuestionsBlock struct {
	Type    models.QuestionType
	IDs     []models.QuestionID
	Missing int
}

// MultiSelectBlock is a single multi-select question identified by data.id.
type MultiSelectBlock struct {
	Type models.QuestionType
	ID   models.QuestionID
}

// LegacyBlock is the flat pre-versioning shape with a top-level id.
type LegacyBlock struct {
	Type models.QuestionType
	ID   models.QuestionID
}

// MalformedBlock matched a shape but cannot be numbered.
type MalformedBlock struct {
	Type   models.QuestionType
	Reason string
}

// UnrecognizedBlock matched no known shape.
type UnrecognizedBlock struct {
	Reason string
}

func (b ItemsBlock) Entries() []SchemaEntry           { return entriesOf(b.Type, b.IDs) }
func (b DropZoneBlock) Entries() []SchemaEntry        { return entriesOf(b.Type, b.IDs) }
func (b NestedQuestionsBlock) Entries() []SchemaEntry { return entriesOf(b.Type, b.IDs) }
func (b MultiSelectBlock) Entries() []SchemaEntry     { return []SchemaEntry{{ID: b.ID, Type: b.Type}} }
func (b LegacyBlock) Entries() []SchemaEntry          { return []SchemaEntry{{ID: b.ID, Type: b.Type}} }
func (MalformedBlock) Entries() []SchemaEntry         { return nil }
func (UnrecognizedBlock) Entries() []SchemaEntry      { return nil }

func (b MatchingBlock) Entries() []SchemaEntry {
	entries := make([]SchemaEntry, 0, b.Count)
	for i := 0; i < b.Count; i++ {
		entries = append(entries, SchemaEntry{
			ID:   models.QuestionID(models.FormatNumber(b.Base + float64(i))),
			Type: b.Type,
		})
	}
	return entries
}

func entriesOf(t models.QuestionType, ids []models.QuestionID) []SchemaEntry {
	entries := make([]SchemaEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, SchemaEntry{ID: id, Type: t})
	}
	return entries
}

type rawBlock struct {
	ID      json.RawMessage     `json:"id"`
	Type    models.QuestionType `json:"type"`
	StartID json.RawMessage     `json:"startId"`
	Items   json.RawMessage     `json:"items"`
	Data    json.RawMessage     `json:"data"`
}

type rawBlockData struct {
	ID        json.RawMessage `json:"id"`
	StartID   json.RawMessage `json:"startId"`
	Items     json.RawMessage `json:"items"`
	DropZones json.RawMessage `json:"dropZones"`
	Questions json.RawMessage `json:"questions"`
}

// DecodeBlock classifies a raw question block. Shapes are tried in priority
// order and the first match wins, so a block never registers twice.
func DecodeBlock(raw json.RawMessage) QuestionBlock {
	var block rawBlock
	if !isObject(raw) || json.Unmarshal(raw, &block) != nil {
		return UnrecognizedBlock{Reason: "block is not an object"}
	}

	var data rawBlockData
	hasData := isObject(block.Data) && json.Unmarshal(block.Data, &data) == nil

	if items, ok := asArray(block.Items); ok {
		ids, missing := idsOf(items)
		return ItemsBlock{Type: typeOrUnknown(block.Type), IDs: ids, Missing: missing}
	}

	if hasData && isMatching(block.Type) {
		if items, ok := asArray(data.Items); ok {
			start := data.StartID
			if len(start) == 0 {
				start = block.StartID
			}
			base, ok := numberOf(start)
			if !ok {
				return MalformedBlock{Type: block.Type, Reason: fmt.Sprintf("start index %s is not a number", rawText(start))}
			}
			return MatchingBlock{Type: block.Type, Base: base, Count: len(items)}
		}
	}

	if hasData && block.Type.IsLabeling() {
		if zones, ok := asArray(data.DropZones); ok {
			ids, missing := idsOf(zones)
			return DropZoneBlock{Type: block.Type, IDs: ids, Missing: missing}
		}
	}

	if hasData {
		if questions, ok := asArray(data.Questions); ok {
			ids, missing := idsOf(questions)
			return NestedQuestionsBlock{Type: typeOrUnknown(block.Type), IDs: ids, Missing: missing}
		}
	}

	if hasData && block.Type == models.QuestionMultiSelect {
		if id, ok := questionID(data.ID); ok {
			return MultiSelectBlock{Type: block.Type, ID: id}
		}
	}

	if id, ok := questionID(block.ID); ok {
		return LegacyBlock{Type: typeOrUnknown(block.Type), ID: id}
	}

	return UnrecognizedBlock{Reason: "block matches no known question shape"}
}

// DefectKind classifies an authoring problem found while extracting a schema.
type DefectKind string

const (
	DefectMalformedBlock    DefectKind = "malformed_block"
	DefectUnrecognizedBlock DefectKind = "unrecognized_block"
	DefectMissingID         DefectKind = "missing_id"
	DefectDuplicateID       DefectKind = "duplicate_id"
)

// AuthoringDefect is reported by Extract; extraction itself never fails.
type AuthoringDefect struct {
	Module     models.Module     `json:"module"`
	Block      int               `json:"block"`
	Kind       DefectKind        `json:"kind"`
	QuestionID models.QuestionID `json:"question_id,omitempty"`
	Message    string            `json:"message"`
}

// ExtractSchema maps every question id of a module to its declared type.
// Blocks that cannot be understood are skipped.
func ExtractSchema(def *models.TestDefinition, module models.Module) models.QuestionSchema {
	schema, _ := Extract(def, module)
	return schema
}

// Extract is ExtractSchema plus a report of the blocks and ids it had to skip
// or overwrite, for the caller to log.
func Extract(def *models.TestDefinition, module models.Module) (models.QuestionSchema, []AuthoringDefect) {
	schema := make(models.QuestionSchema)
	if def == nil {
		return schema, nil
	}

	var defects []AuthoringDefect
	for i, raw := range def.Blocks(module) {
		block := DecodeBlock(raw)

		switch b := block.(type) {
		case MalformedBlock:
			defects = append(defects, AuthoringDefect{Module: module, Block: i, Kind: DefectMalformedBlock, Message: b.Reason})
			continue
		case UnrecognizedBlock:
			defects = append(defects, AuthoringDefect{Module: module, Block: i, Kind: DefectUnrecognizedBlock, Message: b.Reason})
			continue
		}

		if missing := missingIDs(block); missing > 0 {
			defects = append(defects, AuthoringDefect{
				Module:  module,
				Block:   i,
				Kind:    DefectMissingID,
				Message: fmt.Sprintf("%d entries without an id", missing),
			})
		}

		for _, entry := range block.Entries() {
			if prev, exists := schema[entry.ID]; exists {
				defects = append(defects, AuthoringDefect{
					Module:     module,
					Block:      i,
					Kind:       DefectDuplicateID,
					QuestionID: entry.ID,
					Message:    fmt.Sprintf("id already registered as %s", prev),
				})
			}
			schema[entry.ID] = entry.Type
		}
	}

	return schema, defects
}

func missingIDs(block QuestionBlock) int {
	switch b := block.(type) {
	case ItemsBlock:
		return b.Missing
	case DropZoneBlock:
		return b.Missing
	case NestedQuestionsBlock:
		return b.Missing
	}
	return 0
}

func isMatching(t models.QuestionType) bool {
	return t == models.QuestionMatching ||
		t == models.QuestionMatchingHeadings ||
		t == models.QuestionMatchingInformation
}

func typeOrUnknown(t models.QuestionType) models.QuestionType {
	if strings.TrimSpace(string(t)) == "" {
		return models.QuestionUnknown
	}
	return t
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, false
	}
	return list, true
}

func idsOf(list []json.RawMessage) ([]models.QuestionID, int) {
	ids := make([]models.QuestionID, 0, len(list))
	missing := 0
	for _, raw := range list {
		var entry struct {
			ID json.RawMessage `json:"id"`
		}
		if !isObject(raw) || json.Unmarshal(raw, &entry) != nil {
			missing++
			continue
		}
		id, ok := questionID(entry.ID)
		if !ok {
			missing++
			continue
		}
		ids = append(ids, id)
	}
	return ids, missing
}

func questionID(raw json.RawMessage) (models.QuestionID, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return models.NewQuestionID(v)
}

func numberOf(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "<missing>"
	}
	return string(raw)
}
