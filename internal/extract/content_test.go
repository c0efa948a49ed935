package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLines(t *testing.T) {
	pageText := "PAYMENT PLAN\n" +
		"Booking\t10%\tOn booking\n" +
		"Construction\t50%\tMonthly\n" +
		"Handover\t40%\tOn handover\n" +
		"A premium waterfront development in the heart of the marina."

	blocks := classifyLines(pageText, 3)
	require.Len(t, blocks, 5)

	assert.Equal(t, BlockHeader, blocks[0].Type)
	assert.Equal(t, "PAYMENT PLAN", blocks[0].Content)
	assert.Equal(t, BlockTable, blocks[1].Type)
	assert.Equal(t, BlockTable, blocks[2].Type)
	assert.Equal(t, BlockTable, blocks[3].Type)
	assert.Equal(t, BlockText, blocks[4].Type)

	for _, b := range blocks {
		assert.Equal(t, 3, b.Page)
	}
}

func TestIsHeader(t *testing.T) {
	assert.True(t, isHeader("AMENITIES"))
	assert.True(t, isHeader("Payment Plan:"))
	assert.True(t, isHeader("UNIT TYPES 2024"))
	assert.False(t, isHeader("A long sentence describing the project in plain prose that keeps going"))
	assert.False(t, isHeader("Mixed Case Line"))
	assert.False(t, isHeader("12345"))
}

func TestIsTableRow(t *testing.T) {
	assert.True(t, isTableRow("1BR\t720 sqft\t1.2M"))
	assert.True(t, isTableRow("Studio   450 sqft   800K"))
	assert.False(t, isTableRow("Two cells\tonly"))
	assert.False(t, isTableRow("plain text line"))
}

func TestGroupTablesInheritsHeader(t *testing.T) {
	blocks := []Block{
		{Type: BlockText, Content: "intro", Page: 1},
		{Type: BlockHeader, Content: "UNIT TYPES", Page: 1},
		{Type: BlockTable, Content: "1BR\t720\t1.2M", Page: 1},
		{Type: BlockTable, Content: "2BR\t1100\t1.9M", Page: 1},
		{Type: BlockText, Content: "break", Page: 1},
		{Type: BlockTable, Content: "10%\tBooking\tNow", Page: 2},
	}

	tables := groupTables(blocks)
	require.Len(t, tables, 2)

	assert.Equal(t, "UNIT TYPES", tables[0].Header)
	require.Len(t, tables[0].Rows, 2)
	assert.Equal(t, []string{"1BR", "720", "1.2M"}, tables[0].Rows[0])

	// Second table follows a text block, no header to inherit.
	assert.Empty(t, tables[1].Header)
	assert.Len(t, tables[1].Rows, 1)
}

func TestDecodePDFString(t *testing.T) {
	assert.Equal(t, "a(b)c", decodePDFString([]byte(`a\(b\)c`)))
	assert.Equal(t, "line\nnext", decodePDFString([]byte(`line\nnext`)))
	assert.Equal(t, " ", decodePDFString([]byte(`\040`)))
	assert.Equal(t, "plain", decodePDFString([]byte("plain")))
}

func TestNormalizeLinesKeepsCellSpacing(t *testing.T) {
	out := normalizeLines("  Studio   450 sqft   800K  \n\n\nNext line\r\n")
	assert.Equal(t, "Studio   450 sqft   800K\nNext line", out)
}

func TestTextFromStream(t *testing.T) {
	stream := []byte("BT\n(MARINA HEIGHTS) Tj\n0 -20 Td\n(Waterfront living) Tj\nET\n")
	out := textFromStream(stream)
	assert.Equal(t, "MARINA HEIGHTS\nWaterfront living", out)
}

func TestExtractRejectsCorruptPDF(t *testing.T) {
	_, err := NewContentExtractor().Extract([]byte("not a pdf at all"))
	require.Error(t, err)

	var extractErr *ExtractionError
	assert.ErrorAs(t, err, &extractErr)
}
