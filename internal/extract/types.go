// Package extract parses real-estate brochure PDFs into text blocks, table
// candidates and uploaded page images.
package extract

// BlockType classifies a content block.
type BlockType string

const (
	BlockHeader BlockType = "header"
	BlockText   BlockType = "text"
	BlockTable  BlockType = "table"
)

// Block is one classified region of the brochure text, in document order.
type Block struct {
	Type    BlockType `json:"type"`
	Content string    `json:"content"`
	Page    int       `json:"page"`
}

// Table is a grouped run of table rows, with the preceding header block
// carried as the header row when one was present.
type Table struct {
	Header string     `json:"header,omitempty"`
	Rows   [][]string `json:"rows"`
	Page   int        `json:"page"`
}

// Metadata captures document-level facts discovered during extraction.
type Metadata struct {
	Title     string `json:"title,omitempty"`
	PageCount int    `json:"pageCount"`
}

// ContentResult is the Content Extractor output.
type ContentResult struct {
	Text      string   `json:"text"`
	PageCount int      `json:"pageCount"`
	Blocks    []Block  `json:"blocks"`
	Tables    []Table  `json:"tables"`
	Metadata  Metadata `json:"metadata"`
}

// Image is one qualifying raster image found in the source PDF, re-encoded
// and uploaded. Immutable once uploaded.
type Image struct {
	Page   int    `json:"page"`
	URL    string `json:"url"`
	Key    string `json:"key,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`

	// Data holds the re-encoded JPEG bytes for in-run consumers such as the
	// vision classifier. Never persisted; the blob store is the durable copy.
	Data []byte `json:"-"`
}

// ImageItemStatus is the per-image outcome inside an extraction run.
type ImageItemStatus string

const (
	ImageOK      ImageItemStatus = "ok"
	ImageSkipped ImageItemStatus = "skipped"
	ImageFailed  ImageItemStatus = "failed"
)

// ImageItem records one image's outcome so the never-abort-the-batch contract
// is verifiable from the report rather than inferred from logs.
type ImageItem struct {
	Page   int             `json:"page"`
	Name   string          `json:"name"`
	Status ImageItemStatus `json:"status"`
	Reason string          `json:"reason,omitempty"`
}

// ImageReport is the Image Extractor output: the uploaded images plus the
// per-item audit trail.
type ImageReport struct {
	Images []Image     `json:"images"`
	Items  []ImageItem `json:"items"`
}
