package tape

import (
	"fmt"

	"github.com/tidwall/gjson"

	"Puppeteer/pkg/record"
)

// attributePath is the gjson path of the first attribute with the given name
// in a stored record.
func attributePath(name string) string {
	return fmt.Sprintf(`attributes.#(name==%q).value`, name)
}

// FindEvents returns the records of a session that match pattern under the
// event matching rule: same node name, and every attribute of pattern present
// with the same value. Children of pattern are ignored.
func (s *TapeStore) FindEvents(sessionID string, pattern *record.RecordNode) ([]StoredRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, seq, type, object_path, timestamp, data
		FROM events WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		rec, raw, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if !matchJSON(raw, pattern) {
			continue
		}
		if err := decodeNode(rec, raw); err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// matchJSON applies the subset rule directly to the stored JSON, so records
// that do not match are never decoded.
func matchJSON(raw string, pattern *record.RecordNode) bool {
	if pattern == nil {
		return true
	}
	if name := pattern.Name(); name != "" && gjson.Get(raw, "name").String() != name {
		return false
	}
	for _, a := range pattern.Attributes() {
		v := gjson.Get(raw, attributePath(a.Name))
		if !v.Exists() || v.String() != a.Value {
			return false
		}
	}
	return true
}
