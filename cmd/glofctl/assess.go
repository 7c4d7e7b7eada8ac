package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/glof-risk-service/internal/domain"
)

type assessOptions struct {
	asJSON bool
	color  string
}

func newAssessCmd() *cobra.Command {
	opts := &assessOptions{}

	cmd := &cobra.Command{
		Use:   "assess FILE",
		Short: "Assess a JSON array of readings",
		Long: `Read a JSON array of readings (as produced by "glofctl seed --out"),
sort it by timestamp and print the rolling assessment of each reading
against the one before it. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssess(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print assessments as JSON")
	cmd.Flags().StringVar(&opts.color, "color", "auto", "colorize risk levels: auto, always or never")
	return cmd
}

func runAssess(stdin io.Reader, stdout io.Writer, path string, opts *assessOptions) error {
	readings, err := loadReadings(stdin, path)
	if err != nil {
		return err
	}

	assessments := domain.AssessWindow(readings)

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(assessments)
	}

	colored, err := useColor(opts.color, stdout)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, renderTable(readings, assessments, colored))
	return err
}

func loadReadings(stdin io.Reader, path string) ([]domain.Reading, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read readings: %w", err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}

	readings := make([]domain.Reading, 0, len(raws))
	for i, raw := range raws {
		r, err := domain.ParseRawReading(domain.RawEvent{Value: raw})
		if err != nil {
			return nil, fmt.Errorf("reading %d: %w", i, err)
		}
		readings = append(readings, r)
	}

	slices.SortStableFunc(readings, func(a, b domain.Reading) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		default:
			return 0
		}
	})
	return readings, nil
}

func useColor(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		f, ok := w.(*os.File)
		return ok && isatty.IsTerminal(f.Fd()), nil
	default:
		return false, fmt.Errorf("--color must be auto, always or never, got %q", mode)
	}
}

func renderTable(readings []domain.Reading, assessments []domain.RiskAssessment, colored bool) string {
	rows := make([][]string, len(assessments))
	for i, a := range assessments {
		r := readings[i]
		p := domain.Present(a.CombinedRisk)
		rows[i] = []string{
			a.Date,
			strconv.FormatFloat(r.WaterLevelRise, 'f', 1, 64),
			strconv.FormatFloat(r.LakeTemperature, 'f', 1, 64),
			strconv.FormatFloat(r.AirTemperature, 'f', 1, 64),
			a.WaterLevelRisk.String(),
			a.TemperatureRisk.String(),
			p.Label,
		}
	}

	const combinedCol = 6
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("DATE", "RISE CM/DAY", "LAKE °C", "AIR °C", "WATER", "TEMP", "COMBINED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true)
			}
			if colored && col == combinedCol && row >= 0 && row < len(assessments) {
				return style.Foreground(lipgloss.Color(domain.Present(assessments[row].CombinedRisk).Color))
			}
			return style
		}).
		String()
}
