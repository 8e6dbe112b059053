// Package render provides output rendering for the amiresolve CLI.
//
// Format selection:
//   - text is the default
//   - --output always overrides the default
//   - Invalid formats are errors
//
// Every format lists regions in sorted order. --no-color affects table
// output only.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/justapithecus/amiresolve/types"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ParseFormat parses a format string. The empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml":
		return FormatYAML, nil
	case "table":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (must be text, json, yaml, or table)", s)
	}
}

// Renderer handles output formatting.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(format string, noColor bool, out io.Writer) (*Renderer, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return &Renderer{format: f, noColor: noColor, out: out}, nil
}

// Format returns the selected format.
func (r *Renderer) Format() Format {
	return r.format
}

type amiEntry struct {
	AMI string `json:"AMI" yaml:"AMI"`
}

// regionMap is the serialized shape of a resolution result.
type regionMap struct {
	AmiRegionMap map[string]amiEntry `json:"AmiRegionMap" yaml:"AmiRegionMap"`
}

func newRegionMap(result *types.ResolutionResult) regionMap {
	m := regionMap{AmiRegionMap: make(map[string]amiEntry, len(result.Images))}
	for region, id := range result.Images {
		m.AmiRegionMap[string(region)] = amiEntry{AMI: id}
	}
	return m
}

// RenderResult writes the region to image mapping of result.
func (r *Renderer) RenderResult(result *types.ResolutionResult) error {
	switch r.format {
	case FormatText:
		for _, region := range result.Regions() {
			if _, err := fmt.Fprintf(r.out, "  Region %s - %s\n", region, result.Images[region]); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		return r.renderJSON(newRegionMap(result))
	case FormatYAML:
		return r.renderYAML(newRegionMap(result))
	case FormatTable:
		return r.renderResultTable(result)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderRegions writes a list of regions.
func (r *Renderer) RenderRegions(regions []types.PartitionID) error {
	names := make([]string, len(regions))
	for i, p := range regions {
		names[i] = string(p)
	}

	switch r.format {
	case FormatText:
		for _, n := range names {
			if _, err := fmt.Fprintln(r.out, n); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		return r.renderJSON(map[string][]string{"Regions": names})
	case FormatYAML:
		return r.renderYAML(map[string][]string{"Regions": names})
	case FormatTable:
		w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, r.header("REGION"))
		for _, n := range names {
			fmt.Fprintln(w, n)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (r *Renderer) renderYAML(data any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

func (r *Renderer) renderResultTable(result *types.ResolutionResult) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, r.header("REGION\tAMI\tSTATUS"))
	for _, region := range result.Regions() {
		status := "found"
		if region == result.Home {
			status = "home"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", region, result.Images[region], status)
	}
	for _, region := range result.FailedRegions() {
		fmt.Fprintf(w, "%s\t-\terror: %s\n", region, result.Failures[region])
	}
	return w.Flush()
}

var headerStyle = lipgloss.NewStyle().Bold(true)

func (r *Renderer) header(s string) string {
	if r.noColor {
		return s
	}
	return headerStyle.Render(s)
}
