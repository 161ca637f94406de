package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"zonectl/internal/logger"
	"zonectl/internal/models"
)

const (
	fieldSeparator = "|"
	commentPrefix  = "#"
	utf8BOM        = "\ufeff"

	minZone = 1
	maxZone = 9

	maxRowLen     = 4096
	rawPreviewLen = 64
)

// Load anomaly causes.
var (
	ErrFieldCount  = errors.New("row must have exactly three non-empty fields: opcode | name | zone")
	ErrBadOpcode   = errors.New("opcode is not an integer in 0..255")
	ErrBadZone     = errors.New("zone is not an integer in 0..255")
	ErrZoneOutside = errors.New("zone outside relay range 1..9")
	ErrRowTooLong  = errors.New("row exceeds 4096 bytes")
)

// Anomaly describes a problem with one row of the table resource.
// Skipped is false for warnings where the row was still loaded.
type Anomaly struct {
	Line    int    `json:"line"`
	Raw     string `json:"raw"`
	Skipped bool   `json:"skipped"`
	Err     error  `json:"-"`
}

func (a Anomaly) Error() string {
	return fmt.Sprintf("line %d %q: %v", a.Line, a.Raw, a.Err)
}

func (a Anomaly) Unwrap() error { return a.Err }

// LoadFile opens path and loads it with Load.
func LoadFile(path string, log *logger.Logger) (*Table, []Anomaly, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open command table %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	t, anomalies, err := Load(f, log)
	if err != nil {
		return nil, anomalies, fmt.Errorf("load command table %q: %w", path, err)
	}
	return t, anomalies, nil
}

// Load reads "opcode | name | zone" rows in order. Blank lines and lines starting
// with '#' are ignored. Malformed or over-long rows are skipped and reported; only
// a read failure of the resource itself is returned as an error.
func Load(r io.Reader, log *logger.Logger) (*Table, []Anomaly, error) {
	log = logger.OrNop(log)

	var (
		defs      []models.CommandDef
		anomalies []Anomaly
	)

	br := bufio.NewReader(r)
	for line := 1; ; line++ {
		raw, tooLong, err := readRow(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, anomalies, fmt.Errorf("read rows: %w", err)
		}
		if line == 1 {
			raw = strings.TrimPrefix(raw, utf8BOM)
		}
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) {
			continue
		}
		if tooLong {
			preview := trimmed[:min(len(trimmed), rawPreviewLen)]
			anomalies = append(anomalies, Anomaly{Line: line, Raw: preview, Skipped: true, Err: ErrRowTooLong})
			log.Warnw("table_row_skipped", "line", line, "row", preview, "err", ErrRowTooLong)
			continue
		}

		def, err := parseRow(trimmed)
		if err != nil {
			a := Anomaly{Line: line, Raw: trimmed, Skipped: true, Err: err}
			anomalies = append(anomalies, a)
			log.Warnw("table_row_skipped", "line", line, "row", trimmed, "err", err)
			continue
		}
		if def.Zone < minZone || def.Zone > maxZone {
			warn := fmt.Errorf("%w: %d", ErrZoneOutside, def.Zone)
			anomalies = append(anomalies, Anomaly{Line: line, Raw: trimmed, Err: warn})
			log.Warnw("table_row_suspicious", "line", line, "row", trimmed, "err", warn)
		}
		defs = append(defs, def)
	}

	log.Infow("command_table_loaded", "commands", len(defs), "anomalies", len(anomalies))
	return NewTable(defs), anomalies, nil
}

// readRow returns the next line without its terminator. Bytes past maxRowLen are
// discarded and reported through tooLong. io.EOF is returned only once no data is left.
func readRow(br *bufio.Reader) (row string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && len(buf) > 0 {
				return string(buf), tooLong, nil
			}
			return "", false, err
		}
		if !tooLong {
			if room := maxRowLen - len(buf); len(chunk) > room {
				buf = append(buf, chunk[:room]...)
				tooLong = true
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

// parseRow returns an error when the row must be skipped.
func parseRow(row string) (models.CommandDef, error) {
	fields := splitFields(row)
	if len(fields) != 3 {
		return models.CommandDef{}, fmt.Errorf("%w (got %d)", ErrFieldCount, len(fields))
	}

	opcode, err := parseOpcode(fields[0])
	if err != nil {
		return models.CommandDef{}, err
	}
	zone, err := strconv.ParseUint(fields[2], 10, 8)
	if err != nil {
		return models.CommandDef{}, fmt.Errorf("%w: %q", ErrBadZone, fields[2])
	}
	return models.CommandDef{Name: fields[1], Zone: uint8(zone), Opcode: opcode}, nil
}

// splitFields splits on '|', trims each field and drops empty ones, so a
// trailing separator does not count as a field.
func splitFields(row string) []string {
	parts := strings.Split(row, fieldSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseOpcode accepts decimal or 0x, 0o and 0b prefixed values. A leading zero
// followed by more digits ("010") is rejected rather than read as octal.
func parseOpcode(s string) (uint8, error) {
	if len(s) > 1 && s[0] == '0' && isDigit(s[1]) && strings.Trim(s, "0") != "" {
		return 0, fmt.Errorf("%w: %q has a leading zero", ErrBadOpcode, s)
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadOpcode, s)
	}
	return uint8(v), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
