package datfile

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nico2sh/romst/internal/catalog"
	"github.com/nico2sh/romst/internal/logging"
	"github.com/nico2sh/romst/internal/services"
)

// Sink receives parsed catalog records in document order.
type Sink interface {
	// Header is called at most once, when the document carries one.
	Header(info catalog.DatInfo) error
	// Machine is called once per well-formed machine entry.
	Machine(m catalog.Machine, parts []catalog.ContentPart, samples, deviceRefs []string) error
}

// Progress receives the decoder's byte offset and the number of machines
// parsed so far.
type Progress func(offset int64, machines int)

// Options tunes an import.
type Options struct {
	Logger   *slog.Logger
	Progress Progress
}

// Summary reports what an import parsed.
type Summary struct {
	Machines int
	Parts    int
	Samples  int
	Skipped  int
}

// Importer streams a DAT document into a Sink.
type Importer struct {
	sink     Sink
	logger   *slog.Logger
	progress Progress
}

// NewImporter returns an importer feeding the sink.
func NewImporter(sink Sink, opts Options) *Importer {
	return &Importer{
		sink:     sink,
		logger:   logging.NewComponentLogger(opts.Logger, "datfile"),
		progress: opts.Progress,
	}
}

// Import parses the document and feeds every machine to the sink. Entries
// missing required fields are skipped and counted in the summary; XML-level
// corruption aborts with an error.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Summary, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false

	summary := &Summary{}
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return summary, services.Wrap(services.ErrValidation, "datfile", "import", "malformed document", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch strings.ToLower(start.Name.Local) {
		case "datafile", "mame":
			// Container elements: descend.
		case "header":
			if err := im.readHeader(decoder, summary); err != nil {
				return summary, err
			}
		case "machine", "game":
			if err := im.readMachine(ctx, decoder, start, summary); err != nil {
				return summary, err
			}
			if im.progress != nil {
				im.progress(decoder.InputOffset(), summary.Machines)
			}
		default:
			if err := decoder.Skip(); err != nil {
				return summary, services.Wrap(services.ErrValidation, "datfile", "import", "malformed document", err)
			}
		}
	}

	im.logger.Info("import parsed",
		logging.Int("machines", summary.Machines),
		logging.Int("parts", summary.Parts),
		logging.Int("skipped", summary.Skipped))
	return summary, nil
}

func (im *Importer) readHeader(decoder *xml.Decoder, summary *Summary) error {
	var header struct {
		Name        string `xml:"name"`
		Description string `xml:"description"`
		Version     string `xml:"version"`
		Category    string `xml:"category"`
		Comment     string `xml:"comment"`
	}
	if err := decoder.DecodeElement(&header, nil); err != nil {
		return services.Wrap(services.ErrValidation, "datfile", "import", "malformed header", err)
	}
	return im.sink.Header(catalog.DatInfo{
		Name:        strings.TrimSpace(header.Name),
		Description: strings.TrimSpace(header.Description),
		Version:     strings.TrimSpace(header.Version),
		Category:    strings.TrimSpace(header.Category),
		Comment:     strings.TrimSpace(header.Comment),
	})
}

func (im *Importer) readMachine(ctx context.Context, decoder *xml.Decoder, start xml.StartElement, summary *Summary) error {
	machine := machineFromAttrs(start.Attr)

	var (
		parts      []catalog.ContentPart
		samples    []string
		deviceRefs []string
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		token, err := decoder.Token()
		if err != nil {
			return services.Wrap(services.ErrValidation, "datfile", "import",
				fmt.Sprintf("machine %q truncated", machine.Name), err)
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch strings.ToLower(el.Name.Local) {
			case "description":
				machine.Description = im.readText(decoder, &el)
			case "year":
				machine.Year = im.readText(decoder, &el)
			case "manufacturer":
				machine.Manufacturer = im.readText(decoder, &el)
			case "rom":
				im.appendPart(catalog.KindRom, machine.Name, el.Attr, &parts, summary)
				if err := decoder.Skip(); err != nil {
					return err
				}
			case "disk":
				im.appendPart(catalog.KindDisk, machine.Name, el.Attr, &parts, summary)
				if err := decoder.Skip(); err != nil {
					return err
				}
			case "sample":
				if name := attr(el.Attr, "name"); name != "" {
					samples = append(samples, name)
				}
				if err := decoder.Skip(); err != nil {
					return err
				}
			case "device_ref":
				if name := attr(el.Attr, "name"); name != "" {
					deviceRefs = append(deviceRefs, name)
				}
				if err := decoder.Skip(); err != nil {
					return err
				}
			default:
				if err := decoder.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if strings.EqualFold(el.Name.Local, start.Name.Local) {
				if machine.Name == "" {
					summary.Skipped++
					im.logger.Warn("machine without name skipped")
					return nil
				}
				summary.Machines++
				summary.Parts += len(parts)
				summary.Samples += len(samples)
				return im.sink.Machine(machine, parts, samples, deviceRefs)
			}
		}
	}
}

func (im *Importer) readText(decoder *xml.Decoder, el *xml.StartElement) string {
	var text string
	if err := decoder.DecodeElement(&text, el); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// appendPart coerces a rom/disk element into a ContentPart. Elements without
// a name are skipped; parts whose status marks them undumped, or that carry
// no checksum at all, become no-dump parts.
func (im *Importer) appendPart(kind catalog.PartKind, machine string, attrs []xml.Attr, parts *[]catalog.ContentPart, summary *Summary) {
	part := catalog.ContentPart{Machine: machine, Kind: kind}
	var crc, sha1 string
	for _, a := range attrs {
		value := strings.TrimSpace(a.Value)
		switch strings.ToLower(a.Name.Local) {
		case "name":
			part.Name = value
		case "size":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				part.Size = n
			}
		case "crc":
			crc = value
		case "sha1":
			sha1 = value
		case "merge":
			part.Merge = value
		case "status":
			if strings.EqualFold(value, "nodump") {
				part.NoDump = true
			}
		}
	}

	if part.Name == "" {
		summary.Skipped++
		im.logger.Warn("part without name skipped", logging.String(logging.FieldMachine, machine))
		return
	}
	if !part.NoDump {
		part.Sum = catalog.NewChecksum(crc, sha1)
		if part.Sum.IsZero() {
			part.NoDump = true
		}
	}
	*parts = append(*parts, part)
}

func machineFromAttrs(attrs []xml.Attr) catalog.Machine {
	// MAME machines default to runnable unless declared otherwise.
	machine := catalog.Machine{Runnable: true}
	for _, a := range attrs {
		value := strings.TrimSpace(a.Value)
		switch strings.ToLower(a.Name.Local) {
		case "name":
			machine.Name = value
		case "cloneof":
			machine.CloneOf = value
		case "romof":
			machine.RomOf = value
		case "sampleof":
			machine.SampleOf = value
		case "sourcefile":
			machine.SourceFile = value
		case "isdevice":
			machine.IsDevice = yes(value)
		case "runnable":
			machine.Runnable = yes(value)
		}
	}
	return machine
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

func yes(value string) bool {
	return strings.EqualFold(value, "yes") || strings.EqualFold(value, "true") || value == "1"
}
