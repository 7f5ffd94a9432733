package identity

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ManifestFile is the manifest name under the data path.
const ManifestFile = "broadcast.dat"

// ErrMalformedManifest covers truncated framing and invalid JSON.
var ErrMalformedManifest = errors.New("identity: malformed manifest")

// Record is one manifest entry.
type Record struct {
	GUID   string
	Status int
	Index  int
	Title  string
}

// Manifest is the decoded manifest document. Lookups go through gjson; the
// document is never mutated.
type Manifest struct {
	doc gjson.Result
}

// ReadManifest reads and decodes the manifest at path.
// Framing: uint32 little-endian payload length, then the obfuscated payload.
func ReadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("identity: read manifest: %w", err)
	}
	return DecodeManifest(raw)
}

// DecodeManifest decodes a framed, obfuscated manifest image.
func DecodeManifest(raw []byte) (*Manifest, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: %d byte header", ErrMalformedManifest, len(raw))
	}
	n := binary.LittleEndian.Uint32(raw)
	body := raw[4:]
	if uint64(n) > uint64(len(body)) {
		return nil, fmt.Errorf("%w: length %d exceeds %d bytes", ErrMalformedManifest, n, len(body))
	}

	plain := Deobfuscate(body[:n])
	if !gjson.ValidBytes(plain) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedManifest)
	}
	return &Manifest{doc: gjson.ParseBytes(plain)}, nil
}

// Records returns the "app" entries in document order. Numeric fields may
// be JSON numbers or decimal strings; anything unparsable reads as 0.
func (m *Manifest) Records() []Record {
	var out []Record
	m.doc.Get("app").ForEach(func(_, v gjson.Result) bool {
		out = append(out, Record{
			GUID:   v.Get("guid").String(),
			Status: intField(v.Get("status")),
			Index:  intField(v.Get("index")),
			Title:  v.Get("title").String(),
		})
		return true
	})
	return out
}

// Lookup scans for the first record whose GUID equals id and whose status
// is accepted by keep. Records rejected by keep are skipped.
func (m *Manifest) Lookup(id uuid.UUID, keep func(Record) bool) (Record, bool) {
	for _, r := range m.Records() {
		rid, err := uuid.Parse(r.GUID)
		if err != nil || rid != id {
			continue
		}
		if keep != nil && !keep(r) {
			continue
		}
		return r, true
	}
	return Record{}, false
}

// EncodeManifest builds a framed, obfuscated manifest image from records.
// GUIDs are written in the registry form, numbers as decimal strings.
func EncodeManifest(records []Record) ([]byte, error) {
	type entry struct {
		GUID   string `json:"guid"`
		Status string `json:"status"`
		Index  string `json:"index"`
		Title  string `json:"title"`
	}
	doc := struct {
		App []entry `json:"app"`
	}{App: make([]entry, 0, len(records))}

	for _, r := range records {
		doc.App = append(doc.App, entry{
			GUID:   r.GUID,
			Status: strconv.Itoa(r.Status),
			Index:  strconv.Itoa(r.Index),
			Title:  r.Title,
		})
	}

	plain, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("identity: marshal manifest: %w", err)
	}

	out := make([]byte, 4, 4+len(plain))
	binary.LittleEndian.PutUint32(out, uint32(len(plain)))
	return append(out, Obfuscate(plain)...), nil
}

// RegistryForm renders id the way the producer writes GUIDs:
// braces, upper case.
func RegistryForm(id uuid.UUID) string {
	return "{" + strings.ToUpper(id.String()) + "}"
}

func intField(v gjson.Result) int {
	switch v.Type {
	case gjson.Number:
		return int(v.Int())
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(v.Str))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
