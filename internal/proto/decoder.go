// Package proto decodes protobuf message bodies without compiled-in types,
// using .proto files supplied by the operator.
package proto

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
)

// Decoder handles dynamic protobuf message decoding
type Decoder struct {
	messageTypes map[string]*desc.MessageDescriptor
	allMessages  []*desc.MessageDescriptor
	parseErrors  []string
}

// NewDecoder creates a decoder from a directory of .proto files
func NewDecoder(protoPath string) (*Decoder, error) {
	var protoFiles []string
	err := filepath.Walk(protoPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".proto") {
			relPath, err := filepath.Rel(protoPath, path)
			if err != nil {
				relPath = path
			}
			protoFiles = append(protoFiles, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk proto path: %w", err)
	}
	if len(protoFiles) == 0 {
		return nil, fmt.Errorf("no .proto files found in %s", protoPath)
	}

	parser := protoparse.Parser{
		ImportPaths:           []string{protoPath},
		IncludeSourceCodeInfo: true,
	}

	d := &Decoder{messageTypes: make(map[string]*desc.MessageDescriptor)}

	// Parse what we can, remember what we couldn't
	var fds []*desc.FileDescriptor
	for _, pf := range protoFiles {
		fd, err := parser.ParseFiles(pf)
		if err != nil {
			d.parseErrors = append(d.parseErrors, fmt.Sprintf("%s: %v", pf, err))
			continue
		}
		fds = append(fds, fd...)
	}

	for _, fd := range fds {
		for _, md := range fd.GetMessageTypes() {
			d.messageTypes[md.GetName()] = md
			d.messageTypes[md.GetFullyQualifiedName()] = md
			d.allMessages = append(d.allMessages, md)
		}
	}
	if len(d.allMessages) == 0 {
		return nil, fmt.Errorf("no message types parsed from %s: %s", protoPath, strings.Join(d.parseErrors, "; "))
	}

	return d, nil
}

// Decode attempts to decode protobuf bytes. The hint is the message
// subject; when it names a known type (fully qualified, bare, or as a
// trailing dotted segment) that type is strongly preferred, otherwise the
// best-scoring type wins.
func (d *Decoder) Decode(data []byte, hint string) (map[string]any, error) {
	if d == nil || len(d.allMessages) == 0 {
		return nil, fmt.Errorf("no message types loaded")
	}

	typeHint := subjectToTypeHint(hint)

	var bestMatch *dynamic.Message
	var bestMatchName string
	bestScore := 0

	for _, md := range d.allMessages {
		msg := dynamic.NewMessage(md)
		if err := msg.Unmarshal(data); err != nil {
			continue
		}

		// Score by populated fields so richer matches win over the
		// many types an arbitrary payload happens to satisfy.
		score := countPopulatedFields(msg)

		if typeHint != "" &&
			(strings.EqualFold(md.GetName(), typeHint) || strings.EqualFold(md.GetFullyQualifiedName(), hint)) {
			score += 1000
		}

		if score > bestScore {
			bestScore = score
			bestMatch = msg
			bestMatchName = md.GetName()
		}
	}

	if bestMatch == nil {
		return nil, fmt.Errorf("could not decode with any known message type")
	}

	result := messageToMap(bestMatch)
	result["__type"] = bestMatchName
	return result, nil
}

// DecodeAs decodes using a specific message type name
func (d *Decoder) DecodeAs(data []byte, typeName string) (map[string]any, error) {
	md, ok := d.messageTypes[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", typeName)
	}

	msg := dynamic.NewMessage(md)
	if err := msg.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal: %w", err)
	}

	result := messageToMap(msg)
	result["__type"] = typeName
	return result, nil
}

// ListTypes returns all known message type names
func (d *Decoder) ListTypes() []string {
	var types []string
	for name := range d.messageTypes {
		types = append(types, name)
	}
	return types
}

// ParseErrors returns per-file errors collected while loading protos.
func (d *Decoder) ParseErrors() []string {
	return d.parseErrors
}

// subjectToTypeHint extracts a candidate type name from a message subject.
// Subjects are commonly either the bare type name ("OrderCreated"), a
// fully qualified name ("events.v1.OrderCreated"), or a dotted event key
// ("order.created"); the last dotted segment pair is converted to
// PascalCase for that final form.
func subjectToTypeHint(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ""
	}
	parts := strings.Split(subject, ".")
	last := parts[len(parts)-1]

	// Already a type name, bare or qualified
	if len(last) > 0 && last[0] >= 'A' && last[0] <= 'Z' {
		return last
	}
	if len(parts) < 2 {
		return ""
	}

	// "order.created" -> "OrderCreated", with snake_case segments folded in
	entity := pascalCase(parts[len(parts)-2])
	action := pascalCase(last)
	return entity + action
}

func pascalCase(s string) string {
	var b strings.Builder
	for _, word := range strings.Split(strings.ToLower(s), "_") {
		if word == "" {
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	return b.String()
}

func countPopulatedFields(msg *dynamic.Message) int {
	count := 0
	for _, fd := range msg.GetKnownFields() {
		if msg.HasField(fd) {
			count++
		}
	}
	return count
}

func messageToMap(msg *dynamic.Message) map[string]any {
	result := make(map[string]any)
	for _, fd := range msg.GetKnownFields() {
		if !msg.HasField(fd) {
			continue
		}
		result[fd.GetName()] = convertValue(msg.GetField(fd))
	}
	return result
}

func convertValue(val any) any {
	switch v := val.(type) {
	case *dynamic.Message:
		return messageToMap(v)
	case []byte:
		if isPrintable(v) {
			return string(v)
		}
		return fmt.Sprintf("0x%x", v)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = convertValue(item)
		}
		return result
	default:
		return v
	}
}

func isPrintable(data []byte) bool {
	for _, b := range data {
		if b < 32 && b != '\n' && b != '\r' && b != '\t' {
			return false
		}
	}
	return true
}
