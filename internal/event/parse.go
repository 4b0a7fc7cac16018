package event

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/etoilefixes/ubuntu-error-log-tool/internal/model"
)

// Journal field names used by the analyze pipeline. The ingestion pipe asks
// journalctl to restrict its output to exactly this set.
const (
	FieldMessage    = "MESSAGE"
	FieldPriority   = "PRIORITY"
	FieldUnit       = "_SYSTEMD_UNIT"
	FieldExe        = "_EXE"
	FieldComm       = "_COMM"
	FieldIdentifier = "SYSLOG_IDENTIFIER"
)

// Fields is the --output-fields value for analyze-mode journalctl invocations.
const Fields = FieldPriority + "," + FieldMessage + "," + FieldUnit + "," + FieldExe + "," + FieldComm + "," + FieldIdentifier

// Parse decodes one journalctl JSON record. It fails only when the line is
// not a JSON object; individual fields that are malformed or blank are
// treated as absent.
func Parse(line string) (model.JournalEvent, error) {
	var object map[string]any
	if err := json.Unmarshal([]byte(line), &object); err != nil {
		return model.JournalEvent{}, fmt.Errorf("event: record is not a JSON object: %w", err)
	}

	ev := model.JournalEvent{
		Message:    fieldString(object, FieldMessage),
		Priority:   model.NoPriority,
		Unit:       fieldString(object, FieldUnit),
		Exe:        fieldString(object, FieldExe),
		Comm:       fieldString(object, FieldComm),
		Identifier: fieldString(object, FieldIdentifier),
	}

	if p, err := strconv.Atoi(fieldString(object, FieldPriority)); err == nil && p >= 0 && p <= 255 {
		ev.Priority = p
	}
	return ev, nil
}

// fieldString normalizes one journal field to a trimmed string. Journald
// emits string, numeric, boolean, or byte-array encodings depending on the
// field's content; anything else, and anything blank after decoding, is
// treated as absent.
func fieldString(object map[string]any, key string) string {
	raw, ok := object[key]
	if !ok {
		return ""
	}

	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case float64:
		text = formatJSONNumber(v)
	case bool:
		text = strconv.FormatBool(v)
	case []any:
		text = decodeByteArray(v)
	default:
		return ""
	}
	return strings.TrimSpace(text)
}

func formatJSONNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// decodeByteArray handles journald's encoding of non-UTF-8 or binary field
// values as arrays of byte numbers. The result must still be valid UTF-8 to
// be usable as text.
func decodeByteArray(items []any) string {
	buf := make([]byte, 0, len(items))
	for _, item := range items {
		n, ok := item.(float64)
		if !ok || n != math.Trunc(n) || n < 0 || n > 255 {
			return ""
		}
		buf = append(buf, byte(n))
	}
	if !utf8.Valid(buf) {
		return ""
	}
	return string(buf)
}
