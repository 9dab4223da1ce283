package erp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// noteFields is the field list requested from the note-header entity.
// Response rows are positional (f0, f1, ...); the metadata block echoes
// the names back in the order the server actually used, which is the
// only order that counts when mapping values.
var noteFields = []string{
	"NUNOTA", "CODTIPOPER", "CODTIPVENDA", "CODPARC",
	"CODVEND", "VLRNOTA", "DTNEG", "TIPMOV",
}

// loadRequest is the CRUD-service request envelope.
type loadRequest struct {
	ServiceName string          `json:"serviceName"`
	RequestBody loadRequestBody `json:"requestBody"`
}

type loadRequestBody struct {
	DataSet dataSet `json:"dataSet"`
}

type dataSet struct {
	RootEntity                string     `json:"rootEntity"`
	IncludePresentationFields string     `json:"includePresentationFields"`
	OffsetPage                string     `json:"offsetPage"`
	Entity                    entitySpec `json:"entity"`
}

type entitySpec struct {
	FieldSet fieldSetSpec `json:"fieldset"`
}

type fieldSetSpec struct {
	List string `json:"list"`
}

// newLoadRequest builds the page request for the note-header entity.
func newLoadRequest(page int) loadRequest {
	return loadRequest{
		ServiceName: "CRUDServiceProvider.loadRecords",
		RequestBody: loadRequestBody{
			DataSet: dataSet{
				RootEntity:                "CabecalhoNota",
				IncludePresentationFields: "N",
				OffsetPage:                strconv.Itoa(page),
				Entity: entitySpec{
					FieldSet: fieldSetSpec{List: strings.Join(noteFields, ",")},
				},
			},
		},
	}
}

// loadResponse is the CRUD-service response envelope. Status "1" means
// the call succeeded; anything else carries the reason in StatusMessage.
type loadResponse struct {
	ServiceName   string           `json:"serviceName"`
	Status        string           `json:"status"`
	StatusMessage string           `json:"statusMessage"`
	ResponseBody  loadResponseBody `json:"responseBody"`
}

type loadResponseBody struct {
	Entities entityList `json:"entities"`
}

type entityList struct {
	Total         string          `json:"total"`
	HasMoreResult looseBool       `json:"hasMoreResult"`
	Metadata      entityMetadata  `json:"metadata"`
	Entity        json.RawMessage `json:"entity"`
}

type entityMetadata struct {
	Fields fieldDefList `json:"fields"`
}

type fieldDefList struct {
	Field []fieldDef `json:"field"`
}

type fieldDef struct {
	Name string `json:"name"`
}

// names returns the declared field names in declaration order.
func (m entityMetadata) names() []string {
	names := make([]string, 0, len(m.Fields.Field))
	for _, f := range m.Fields.Field {
		names = append(names, f.Name)
	}
	return names
}

// looseBool accepts JSON booleans as well as the quoted renditions the
// service sometimes sends ("true", "false").
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(strings.Trim(string(data), `"`)) {
	case "true", "1":
		*b = true
	case "false", "0", "", "null":
		*b = false
	default:
		return fmt.Errorf("unrecognized boolean %s", data)
	}
	return nil
}

// fieldValue is the {"$": "..."} wrapper around every entity value.
type fieldValue struct {
	Value string `json:"$"`
}

// entityRow maps positional keys (f0, f1, ...) to wrapped values.
type entityRow map[string]fieldValue

// normalizeEntities decodes the entity payload. The service sends an
// array of rows except when exactly one record matches, in which case
// the row arrives as a bare object.
func normalizeEntities(raw json.RawMessage) ([]entityRow, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var rows []entityRow
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("decode entity list: %w", err)
		}
		return rows, nil
	}

	var row entityRow
	if err := json.Unmarshal(trimmed, &row); err != nil {
		return nil, fmt.Errorf("decode entity object: %w", err)
	}
	return []entityRow{row}, nil
}

// mapRecord converts one positional row into a typed record using the
// declared field order. Absent or unparseable values stay unset; the
// reconciler decides later whether the record is usable at all.
func mapRecord(names []string, row entityRow) domain.NoteRecord {
	var rec domain.NoteRecord
	for i, name := range names {
		cell, ok := row["f"+strconv.Itoa(i)]
		if !ok {
			continue
		}
		raw := strings.TrimSpace(cell.Value)
		if raw == "" {
			continue
		}

		switch name {
		case "NUNOTA":
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				rec.NoteID = id
			}
		case "CODTIPOPER":
			rec.OperationType = intField(raw)
		case "CODTIPVENDA":
			rec.SaleType = intField(raw)
		case "CODPARC":
			rec.PartnerCode = intField(raw)
		case "CODVEND":
			rec.Salesperson = intField(raw)
		case "VLRNOTA":
			rec.TotalAmount = floatField(raw)
		case "DTNEG":
			rec.NegotiatedAt = domain.ParseNoteDate(raw)
		case "TIPMOV":
			rec.MovementType = raw
		}
	}
	return rec
}

func intField(s string) *int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func floatField(s string) *float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
