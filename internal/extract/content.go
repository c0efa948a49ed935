package extract

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ContentExtractor parses the PDF text layer into classified blocks and
// table candidates.
type ContentExtractor struct{}

// NewContentExtractor creates a content extractor.
func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Extract decodes the PDF text layer and segments it into blocks and tables.
// A corrupt or unparseable PDF yields an *ExtractionError; callers treat that
// as fatal for the whole pipeline run.
func (e *ContentExtractor) Extract(buf []byte) (*ContentResult, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(buf), conf)
	if err != nil {
		return nil, extractionErr("read pdf", err)
	}

	if ctx.PageCount == 0 {
		return nil, extractionErr("pdf has no pages", nil)
	}

	var (
		allText strings.Builder
		blocks  []Block
		title   string
	)

	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageText := extractPageText(ctx, pageNr)
		if pageText == "" {
			continue
		}

		if allText.Len() > 0 {
			allText.WriteByte('\n')
		}
		allText.WriteString(pageText)

		pageBlocks := classifyLines(pageText, pageNr)
		blocks = append(blocks, pageBlocks...)

		if title == "" {
			for _, b := range pageBlocks {
				if b.Type == BlockHeader {
					title = b.Content
					break
				}
			}
		}
	}

	tables := groupTables(blocks)

	return &ContentResult{
		Text:      allText.String(),
		PageCount: ctx.PageCount,
		Blocks:    blocks,
		Tables:    tables,
		Metadata: Metadata{
			Title:     title,
			PageCount: ctx.PageCount,
		},
	}, nil
}

// extractPageText extracts text from a single PDF page via the pdfcpu content
// stream, preserving line structure for downstream classification.
func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromStream(data)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// textFromStream parses PDF content stream operators for text. Positioning
// operators become line breaks so the heuristics below see line structure.
func textFromStream(data []byte) string {
	var sb strings.Builder

	lines := bytes.Split(data, []byte{'\n'})
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		// Tj / TJ: show text on the current line.
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}

		// ': move to next line and show text.
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			sb.WriteByte('\n')
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}

		// Td / TD / T*: text positioning, treated as a line break.
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")), bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return normalizeLines(sb.String())
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\', '(', ')':
				sb.WriteByte(raw[i])
			default:
				// Octal escape (e.g. \040 for space).
				if raw[i] >= '0' && raw[i] <= '7' {
					val := int(raw[i] - '0')
					for j := 0; j < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; j++ {
						i++
						val = val*8 + int(raw[i]-'0')
					}
					sb.WriteByte(byte(val))
				} else {
					sb.WriteByte(raw[i])
				}
			}
		} else {
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}

// normalizeLines trims each line, drops unprintable runes and collapses runs
// of blank lines, keeping tabs and spaces intact for the table heuristic.
func normalizeLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out []string
	for _, line := range strings.Split(text, "\n") {
		var sb strings.Builder
		for _, r := range line {
			if r == '\t' || unicode.IsPrint(r) {
				sb.WriteRune(r)
			}
		}
		cleaned := strings.TrimRight(sb.String(), " \t")
		cleaned = strings.TrimLeft(cleaned, " ")
		if cleaned == "" {
			continue
		}
		out = append(out, cleaned)
	}
	return strings.Join(out, "\n")
}

const maxHeaderLen = 64

// cellSplitRe splits table-row candidates on tabs or runs of 2+ spaces.
var cellSplitRe = regexp.MustCompile(`\t+| {2,}`)

// classifyLines segments page text into header/table/text blocks.
// A line is a header when it is short and either all-caps or colon-terminated;
// a table row when it splits into at least three cells.
func classifyLines(pageText string, page int) []Block {
	var blocks []Block

	for _, line := range strings.Split(pageText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case isTableRow(line):
			blocks = append(blocks, Block{Type: BlockTable, Content: line, Page: page})
		case isHeader(line):
			blocks = append(blocks, Block{Type: BlockHeader, Content: strings.TrimSuffix(line, ":"), Page: page})
		default:
			blocks = append(blocks, Block{Type: BlockText, Content: line, Page: page})
		}
	}

	return blocks
}

func isHeader(line string) bool {
	if len(line) > maxHeaderLen {
		return false
	}
	if strings.HasSuffix(line, ":") {
		return true
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}

func isTableRow(line string) bool {
	return len(splitCells(line)) >= 3
}

func splitCells(line string) []string {
	var cells []string
	for _, c := range cellSplitRe.Split(line, -1) {
		c = strings.TrimSpace(c)
		if c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

// groupTables collects consecutive table-row blocks into tables. A table
// inherits the immediately preceding header block as its header row when one
// is present.
func groupTables(blocks []Block) []Table {
	var tables []Table
	var current *Table

	for i, b := range blocks {
		if b.Type != BlockTable {
			current = nil
			continue
		}

		if current == nil {
			t := Table{Page: b.Page}
			if i > 0 && blocks[i-1].Type == BlockHeader {
				t.Header = blocks[i-1].Content
			}
			tables = append(tables, t)
			current = &tables[len(tables)-1]
		}

		current.Rows = append(current.Rows, splitCells(b.Content))
	}

	return tables
}
