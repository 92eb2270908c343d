package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"pqx/internal/model"

	"github.com/hangxie/parquet-go/v2/parquet"
	"github.com/hangxie/parquet-go/v2/reader"
	"github.com/hangxie/parquet-go/v2/source/local"
	"github.com/hangxie/parquet-go/v2/writer"
	log "github.com/sirupsen/logrus"
)

const defaultParallelism = 4

// Parquet reads and writes flat parquet files on the local filesystem.
//
// Only flat schemas of INT32, INT64, FLOAT, DOUBLE and BYTE_ARRAY leaves are
// supported. Converted types that keep the physical value as is (dates, times,
// timestamps, sized ints, decimals on ints, UTF8/ENUM/JSON strings) are carried
// through a write; anything else fails with ErrUnsupportedType.
type Parquet struct {
	// Parallelism is the number of goroutines the parquet reader/writer may use.
	Parallelism int64

	// Backup keeps the file being replaced as <path>.bak.
	Backup bool
}

func (p Parquet) np() int64 {
	if p.Parallelism > 0 {
		return p.Parallelism
	}
	return defaultParallelism
}

// parquetColumn is a leaf of the file schema mapped onto a model column.
type parquetColumn struct {
	name       string
	dtype      model.DType
	physical   string
	annotation string
}

type parquetFile struct {
	pr      *reader.ParquetReader
	close   func() error
	columns []parquetColumn
}

func (p Parquet) open(path string) (*parquetFile, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	pr, err := reader.NewParquetColumnReader(fr, p.np())
	if err != nil {
		_ = fr.Close()
		return nil, fmt.Errorf("not a readable parquet file: %w", err)
	}
	f := &parquetFile{
		pr: pr,
		close: func() error {
			stopErr := pr.ReadStopWithError()
			if err := fr.Close(); err != nil {
				return err
			}
			return stopErr
		},
	}
	cols, err := schemaColumns(pr.Footer)
	if err != nil {
		_ = f.close()
		return nil, err
	}
	f.columns = cols
	return f, nil
}

// schemaColumns flattens the footer schema. Element 0 is the root group; every
// other element must be a non-repeated leaf.
func schemaColumns(meta *parquet.FileMetaData) ([]parquetColumn, error) {
	if meta == nil || len(meta.Schema) == 0 {
		return nil, errors.New("missing schema")
	}
	var out []parquetColumn
	for _, elem := range meta.Schema[1:] {
		if elem.GetNumChildren() > 0 {
			return nil, fmt.Errorf("%w: nested field %q", ErrUnsupportedType, elem.GetName())
		}
		if elem.IsSetRepetitionType() && elem.GetRepetitionType() == parquet.FieldRepetitionType_REPEATED {
			return nil, fmt.Errorf("%w: repeated field %q", ErrUnsupportedType, elem.GetName())
		}
		col := parquetColumn{name: elem.GetName(), physical: elem.GetType().String()}
		switch elem.GetType() {
		case parquet.Type_INT32, parquet.Type_INT64:
			col.dtype = model.DTypeInteger
		case parquet.Type_FLOAT, parquet.Type_DOUBLE:
			col.dtype = model.DTypeFloat
		case parquet.Type_BYTE_ARRAY:
			col.dtype = model.DTypeText
		default:
			return nil, fmt.Errorf("%w: %s field %q", ErrUnsupportedType, elem.GetType(), elem.GetName())
		}
		ann, err := leafAnnotation(elem)
		if err != nil {
			return nil, err
		}
		col.annotation = ann
		out = append(out, col)
	}
	return out, nil
}

// leafAnnotation returns elem's logical annotation as a tag fragment, or
// ErrUnsupportedType when the values would need converting to be shown or
// written back.
func leafAnnotation(elem *parquet.SchemaElement) (string, error) {
	if elem.IsSetConvertedType() {
		ct := elem.GetConvertedType()
		switch elem.GetType() {
		case parquet.Type_INT32, parquet.Type_INT64:
			switch ct {
			case parquet.ConvertedType_DATE,
				parquet.ConvertedType_TIME_MILLIS, parquet.ConvertedType_TIME_MICROS,
				parquet.ConvertedType_TIMESTAMP_MILLIS, parquet.ConvertedType_TIMESTAMP_MICROS,
				parquet.ConvertedType_INT_8, parquet.ConvertedType_INT_16,
				parquet.ConvertedType_INT_32, parquet.ConvertedType_INT_64,
				parquet.ConvertedType_UINT_8, parquet.ConvertedType_UINT_16,
				parquet.ConvertedType_UINT_32, parquet.ConvertedType_UINT_64:
				return "convertedtype=" + ct.String(), nil
			case parquet.ConvertedType_DECIMAL:
				return fmt.Sprintf("convertedtype=DECIMAL, scale=%d, precision=%d", elem.GetScale(), elem.GetPrecision()), nil
			}
		case parquet.Type_BYTE_ARRAY:
			switch ct {
			case parquet.ConvertedType_UTF8, parquet.ConvertedType_ENUM, parquet.ConvertedType_JSON:
				return "convertedtype=" + ct.String(), nil
			}
		}
		return "", fmt.Errorf("%w: %s %s field %q", ErrUnsupportedType, ct, elem.GetType(), elem.GetName())
	}
	if elem.IsSetLogicalType() {
		if elem.GetType() == parquet.Type_BYTE_ARRAY && elem.GetLogicalType().IsSetSTRING() {
			return "convertedtype=UTF8", nil
		}
		return "", fmt.Errorf("%w: logical type %s on field %q", ErrUnsupportedType, elem.GetLogicalType(), elem.GetName())
	}
	return "", nil
}

func (p Parquet) RowCount(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := p.open(path)
	if err != nil {
		return 0, ioError("row count", path, err)
	}
	defer func() { _ = f.close() }()
	return int(f.pr.GetNumRows()), nil
}

func (p Parquet) ReadSlice(ctx context.Context, path string, offset, limit int) (*model.Table, error) {
	if err := checkSlice(offset, limit); err != nil {
		return nil, ioError("read slice", path, err)
	}
	t, err := p.read(ctx, path, offset, limit)
	if err != nil {
		return nil, ioError("read slice", path, err)
	}
	return t, nil
}

func (p Parquet) ReadAll(ctx context.Context, path string) (*model.Table, error) {
	t, err := p.read(ctx, path, 0, -1)
	if err != nil {
		return nil, ioError("read", path, err)
	}
	return t, nil
}

// read decodes rows [offset, offset+limit); limit < 0 means "to the end".
func (p Parquet) read(ctx context.Context, path string, offset, limit int) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := p.open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.close() }()

	total := int(f.pr.GetNumRows())
	start := min(offset, total)
	n := total - start
	if limit >= 0 {
		n = min(n, limit)
	}
	log.WithFields(log.Fields{"path": path, "offset": start, "rows": n, "total": total}).Debug("parquet read")

	if start > 0 && n > 0 {
		if err := f.pr.SkipRows(int64(start)); err != nil {
			return nil, fmt.Errorf("skip %d rows: %w", start, err)
		}
	}

	cols := make([]model.Column, len(f.columns))
	for i, pc := range f.columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cells := make([]model.Cell, 0, n)
		if n > 0 {
			values, _, _, err := f.pr.ReadColumnByIndex(int64(i), int64(n))
			if err != nil {
				return nil, fmt.Errorf("read column %q: %w", pc.name, err)
			}
			if len(values) != n {
				return nil, fmt.Errorf("column %q: expected %d values; got %d", pc.name, n, len(values))
			}
			for _, v := range values {
				c, err := model.FromValue(pc.dtype, v)
				if err != nil {
					return nil, fmt.Errorf("column %q: %w", pc.name, err)
				}
				cells = append(cells, c)
			}
		}
		cols[i] = model.Column{Name: pc.name, Type: pc.dtype, Physical: pc.physical, Annotation: pc.annotation, Cells: cells}
	}
	return model.NewTable(cols...)
}

// WriteAll replaces path with t. The file is written next to path and renamed into
// place, so a failed write leaves the previous file intact.
func (p Parquet) WriteAll(ctx context.Context, path string, t *model.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.writeAll(ctx, path, t); err != nil {
		return ioError("write", path, err)
	}
	return nil
}

func (p Parquet) writeAll(ctx context.Context, path string, t *model.Table) error {
	leaves, err := writeLeaves(t)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmpf, err := os.CreateTemp(dir, ".pqx-*.parquet.tmp")
	if err != nil {
		return err
	}
	tmp := tmpf.Name()
	_ = tmpf.Close()
	defer func() { _ = os.Remove(tmp) }()

	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return err
	}
	md := make([]string, len(leaves))
	for i, l := range leaves {
		md[i] = l.tag()
	}
	pw, err := writer.NewCSVWriter(md, fw, p.np())
	if err != nil {
		_ = fw.Close()
		return err
	}
	for pos := 0; pos < t.NumRows(); pos++ {
		if pos%1024 == 0 {
			if err := ctx.Err(); err != nil {
				_ = fw.Close()
				return err
			}
		}
		// The writer buffers rows until it flushes, so each row gets its own slice.
		rec := make([]any, len(leaves))
		for ci, l := range leaves {
			rec[ci] = l.value(t.Columns[ci].Cells[pos])
		}
		if err := pw.Write(rec); err != nil {
			_ = fw.Close()
			return fmt.Errorf("write row %d: %w", pos, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}
	if p.Backup {
		if err := backupFile(path); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}
	log.WithFields(log.Fields{"path": path, "rows": t.NumRows(), "columns": t.NumCols()}).Debug("parquet write")
	return os.Rename(tmp, path)
}

// writeLeaf is the on-disk shape of one column. Every leaf is OPTIONAL so null
// cells round-trip.
type writeLeaf struct {
	name       string
	physical   parquet.Type
	annotation string
}

func (l writeLeaf) tag() string {
	tag := fmt.Sprintf("name=%s, type=%s", l.name, l.physical)
	if l.annotation != "" {
		tag += ", " + l.annotation
	}
	return tag + ", repetitiontype=OPTIONAL"
}

// value is c as the Go type parquet-go expects for the leaf; nil for null.
func (l writeLeaf) value(c model.Cell) any {
	if c.IsNull() {
		return nil
	}
	switch l.physical {
	case parquet.Type_INT32:
		return int32(c.Int)
	case parquet.Type_INT64:
		return c.Int
	case parquet.Type_FLOAT:
		return float32(c.Float)
	case parquet.Type_DOUBLE:
		return c.Float
	default:
		return c.Text
	}
}

// writeLeaves picks the physical type and annotation of every column: the ones
// the column was read with when they still fit its type, else a default. A plain
// INT32 column holding a value beyond 32 bits is widened to INT64.
func writeLeaves(t *model.Table) ([]writeLeaf, error) {
	leaves := make([]writeLeaf, len(t.Columns))
	seen := map[string]string{}
	for i, c := range t.Columns {
		name := c.Name
		if name == "" || strings.TrimSpace(name) != name || strings.ContainsAny(name, ",=") {
			return nil, fmt.Errorf("column name %q cannot be written to parquet", c.Name)
		}
		// parquet-go upper-cases the first rune for its internal field names.
		key := strings.ToUpper(name[:1]) + name[1:]
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("column names %q and %q collide in parquet", prev, c.Name)
		}
		seen[key] = c.Name

		l := writeLeaf{name: name}
		switch c.Type {
		case model.DTypeInteger:
			l.physical = parquet.Type_INT64
			switch c.Physical {
			case parquet.Type_INT32.String():
				l.physical, l.annotation = parquet.Type_INT32, c.Annotation
				if v, ok := outsideInt32(c); ok {
					if c.Annotation != "" {
						return nil, fmt.Errorf("column %q: %d does not fit INT32 (%s)", name, v, c.Annotation)
					}
					l.physical = parquet.Type_INT64
				}
			case parquet.Type_INT64.String():
				l.annotation = c.Annotation
			}
		case model.DTypeFloat:
			l.physical = parquet.Type_DOUBLE
			if c.Physical == parquet.Type_FLOAT.String() {
				l.physical = parquet.Type_FLOAT
			}
		default:
			l.physical, l.annotation = parquet.Type_BYTE_ARRAY, "convertedtype=UTF8"
			if c.Physical == parquet.Type_BYTE_ARRAY.String() {
				l.annotation = c.Annotation
			}
		}
		leaves[i] = l
	}
	return leaves, nil
}

// outsideInt32 returns the first non-null value of c that INT32 cannot hold.
func outsideInt32(c model.Column) (int64, bool) {
	for _, cell := range c.Cells {
		if !cell.IsNull() && (cell.Int > math.MaxInt32 || cell.Int < math.MinInt32) {
			return cell.Int, true
		}
	}
	return 0, false
}
