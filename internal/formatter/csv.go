package formatter

import (
	"bufio"
	"context"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/frame"
)

// csvHeader names the columns of the csv export.
var csvHeader = []string{"Stack", "Tags", "Count", "Weight"}

// CSV writes one row per (stack, tag set) bucket. The Stack column lists
// frames leaf first as "module!method;" ("module;" for an empty method) and
// the Tags column lists the sorted tags, each followed by ";".
type CSV struct {
	source aggregate.Kind
}

// NewCSV creates the csv format reading rows from the given model kind.
// An empty kind reads from the merged tree.
func NewCSV(source aggregate.Kind) *CSV {
	if source == "" {
		source = aggregate.KindTree
	}
	return &CSV{source: source}
}

func (c *CSV) Name() string          { return "csv" }
func (c *CSV) Extension() string     { return ".csv" }
func (c *CSV) Needs() aggregate.Kind { return c.source }

// Save implements Format.
func (c *CSV) Save(ctx context.Context, t Target, m aggregate.Model) (string, error) {
	rows, err := asRows(m)
	if err != nil {
		return "", err
	}
	f, path, err := create(t, c.Extension())
	if err != nil {
		return path, err
	}

	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)
	err = w.Write(csvHeader)

	var written int
	var sb strings.Builder
	for row := range rows {
		if err != nil {
			break
		}
		if err = ctx.Err(); err != nil {
			break
		}
		record := []string{
			StackString(&sb, row.Stack),
			TagString(&sb, row.Tags),
			strconv.FormatInt(row.Count, 10),
			strconv.FormatInt(row.Weight, 10),
		}
		err = w.Write(record)
		written++
	}
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err == nil {
		err = bw.Flush()
	}
	t.logger().Debug("Wrote %d csv rows to %s", written, path)
	return finish(f, path, err)
}

// StackString renders idents, leaf first, in the csv Stack column format.
func StackString(sb *strings.Builder, stack []frame.Ident) string {
	sb.Reset()
	for _, id := range stack {
		sb.WriteString(id.Module)
		if id.Method != "" {
			sb.WriteByte('!')
			sb.WriteString(id.Method)
		}
		sb.WriteByte(';')
	}
	return sb.String()
}

// TagString renders a tag set in the csv Tags column format.
func TagString(sb *strings.Builder, tags []string) string {
	sb.Reset()
	for _, tag := range frame.NormalizeTags(tags) {
		sb.WriteString(tag)
		sb.WriteByte(';')
	}
	return sb.String()
}
