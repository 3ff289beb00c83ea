package osmxml

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
)

// maxEntityBuffer bounds the Network pipeline's per-entity accumulation
// buffer at 4 MB, per spec.md §4.3/§5.
const maxEntityBuffer = 4 * 1024 * 1024

// prologProbeBytes is how much of the stream header is inspected to
// validate the XML prolog, per spec.md §6.
const prologProbeBytes = 512

var topLevelTags = []string{"node", "way", "relation"}

// Scanner implements the Network pipeline's lightweight lexical scanner
// (spec.md §4.3): it hunts for top-level entity openings over a rolling
// tag-matching buffer rather than fully tokenizing the stream, then
// accumulates each entity's content in isolation and hands it to a
// one-shot Decoder pass. Grounded directly on spatialite_osm_net.c's
// update_tag character-at-a-time buffer match.
type Scanner struct {
	br       *bufio.Reader
	Progress func(line int64)
	lines    int64
	lastLine int64
}

// NewScanner validates the prolog (first <= 512 bytes begin with
// "<?xml" and the first element is "<osm") and returns a Scanner
// positioned to find the first top-level entity.
func NewScanner(r io.Reader) (*Scanner, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	probe, err := br.Peek(prologProbeBytes)
	if err != nil && err != io.EOF {
		return nil, apperrors.Wrap(apperrors.Parse, err, "malformed XML")
	}
	text := string(probe)
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(trimmed, "<?xml") {
		return nil, apperrors.New(apperrors.Parse, "missing <?xml prolog")
	}
	if idx := strings.Index(trimmed, "<osm"); idx < 0 {
		return nil, apperrors.New(apperrors.Parse, "missing <osm root element")
	}

	return &Scanner{br: br}, nil
}

// Next returns the next top-level entity, or io.EOF when the stream is
// exhausted.
func (s *Scanner) Next() (*Entity, error) {
	tagName, err := s.huntOpening()
	if err != nil {
		return nil, err
	}
	if tagName == "" {
		return nil, io.EOF
	}

	buf, err := s.accumulate(tagName)
	if err != nil {
		return nil, err
	}

	d := NewDecoder(bytes.NewReader(buf))
	ent, err := d.Next()
	if err != nil && err != io.EOF {
		return nil, apperrors.Wrap(apperrors.Parse, err, "malformed entity buffer")
	}
	if ent == nil {
		return nil, apperrors.New(apperrors.Parse, "empty entity buffer")
	}
	return ent, nil
}

// huntOpening scans byte-by-byte maintaining a rolling window, looking
// for "<node", "<way" or "<relation". It returns the matched tag name,
// having consumed through the tag name itself (not yet its attributes).
func (s *Scanner) huntOpening() (string, error) {
	var window []byte
	const windowCap = 10 // longest candidate, "<relation", plus slack

	for {
		b, err := s.br.ReadByte()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", apperrors.Wrap(apperrors.Parse, err, "malformed XML")
		}
		s.countLine(b)

		window = append(window, b)
		if len(window) > windowCap {
			window = window[len(window)-windowCap:]
		}

		for _, name := range topLevelTags {
			token := "<" + name
			if bytes.HasSuffix(window, []byte(token)) {
				return name, nil
			}
		}
	}
}

// accumulate collects bytes from just after the opening "<tagName" (the
// caller already consumed through the tag name) through the matching
// close — either a self-closing "/>" or an explicit "</tagName>" — into
// an isolated buffer capped at maxEntityBuffer, reconstructing the full
// element text including the leading "<tagName" already consumed.
func (s *Scanner) accumulate(tagName string) ([]byte, error) {
	buf := bytes.NewBufferString("<" + tagName)
	closeTag := []byte("</" + tagName + ">")

	var tail []byte
	for {
		b, err := s.br.ReadByte()
		if err == io.EOF {
			return nil, apperrors.New(apperrors.Parse, "truncated entity")
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.Parse, err, "malformed XML")
		}
		s.countLine(b)

		if buf.Len() >= maxEntityBuffer {
			return nil, apperrors.New(apperrors.Parse, "entity exceeds 4MB buffer")
		}
		buf.WriteByte(b)

		tail = append(tail, b)
		if len(tail) > len(closeTag) {
			tail = tail[len(tail)-len(closeTag):]
		}
		if bytes.Equal(tail, closeTag) {
			return buf.Bytes(), nil
		}
		if buf.Len() >= 2 {
			data := buf.Bytes()
			if data[len(data)-2] == '/' && data[len(data)-1] == '>' {
				// Self-closing tag with no children; only valid before
				// any nested '<' has appeared, i.e. immediately closing
				// the attribute list.
				if !bytes.ContainsAny(data[1:len(data)-2], "<") {
					return buf.Bytes(), nil
				}
			}
		}
	}
}

func (s *Scanner) countLine(b byte) {
	if b != '\n' {
		return
	}
	s.lines++
	if s.Progress != nil && s.lines-s.lastLine >= 1000 {
		s.lastLine = s.lines
		s.Progress(s.lines)
	}
}
