package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/fatih/color"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"blogkeeper/internal/domain/blog"
)

// Format формат вывода результатов команды
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

const minCellWidth = 12

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("неизвестный формат вывода %q (table, json, yaml)", s)
}

// Columns описывает табличное представление записи.
type Columns[T any] struct {
	Headers []string
	Row     func(T) []string
}

// Printer выводит результаты в выбранном формате.
type Printer struct {
	w      io.Writer
	format Format
	width  int
}

// NewPrinter создает принтер. Для терминала ширина ячеек ограничивается шириной окна.
func NewPrinter(w io.Writer, format Format) *Printer {
	p := &Printer{w: w, format: format}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.width = width
		}
	}
	return p
}

func (p *Printer) Format() Format {
	return p.format
}

// Encode выводит значение в JSON или YAML.
func (p *Printer) Encode(v any) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
}

// Message выводит строку только в табличном режиме, чтобы не портить JSON и YAML.
func (p *Printer) Message(format string, args ...any) {
	if p.format == FormatTable {
		fmt.Fprintf(p.w, format+"\n", args...)
	}
}

// Fields выводит пары "параметр: значение" или v целиком для JSON и YAML.
func (p *Printer) Fields(v any, rows [][2]string) error {
	if p.format != FormatTable {
		return p.Encode(v)
	}

	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\n", color.New(color.Bold).Sprint(row[0]+":"), row[1])
	}
	return w.Flush()
}

// PrintList выводит список записей.
func PrintList[T any](p *Printer, items []T, cols Columns[T]) error {
	if p.format != FormatTable {
		if items == nil {
			items = []T{}
		}
		return p.Encode(items)
	}

	if len(items) == 0 {
		fmt.Fprintln(p.w, "Записи не найдены")
		return nil
	}

	limit := 0
	if p.width > 0 && len(cols.Headers) > 0 {
		limit = max(minCellWidth, p.width/len(cols.Headers))
	}

	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(cols.Headers, "\t")))

	for _, item := range items {
		fmt.Fprintln(w, strings.Join(truncateRow(cols.Row(item), limit), "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(p.w, "\nВсего записей: %d\n", len(items))
	return nil
}

// PrintOne выводит одну запись.
func PrintOne[T any](p *Printer, item T, cols Columns[T]) error {
	if p.format != FormatTable {
		return p.Encode(item)
	}
	return PrintList(p, []T{item}, cols)
}

// Status возвращает статус синхронизации с цветовой меткой.
func Status(s blog.SyncStatus) string {
	switch s {
	case blog.StatusSynced:
		return color.GreenString(string(s))
	case blog.StatusPending:
		return color.YellowString(string(s))
	case blog.StatusFailed:
		return color.RedString(string(s))
	}
	return string(s)
}

func truncateRow(row []string, limit int) []string {
	if limit <= 0 {
		return row
	}
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = truncate(cell, limit)
	}
	return out
}

func truncate(s string, length int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if length <= 3 || utf8.RuneCountInString(s) <= length {
		return s
	}
	runes := []rune(s)
	return string(runes[:length-3]) + "..."
}
