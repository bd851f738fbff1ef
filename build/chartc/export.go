package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"moria.us/chartline/build/chart"
	"moria.us/chartline/build/export"
)

var formatExts = map[string]string{
	".json": "json",
	".pb":   "pb",
	".mid":  "midi",
	".midi": "midi",
}

func encode(format string, tl *chart.Timeline) ([]byte, error) {
	switch format {
	case "json":
		data, err := export.JSON(tl)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "pb":
		return export.MarshalProto(tl), nil
	case "midi":
		var buf bytes.Buffer
		if err := export.WriteMIDI(&buf, tl); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown format: %q", format)
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export [chart.tja]",
		Short: "Write the compiled timeline as JSON, protobuf or MIDI",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = formatExts[strings.ToLower(filepath.Ext(output))]
				if format == "" {
					format = "json"
				}
			}
			_, tl, err := compile(cmd.Context(), opts, args)
			if err != nil {
				return err
			}
			data, err := encode(format, tl)
			if err != nil {
				return err
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			return ioutil.WriteFile(output, data, 0o666)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "", "output format: json, pb or midi (default from the output extension, or json)")
	f.StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
