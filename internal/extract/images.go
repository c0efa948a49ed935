package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoding for embedded images
	"io"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/draw"

	"github.com/estateforge/prospect-engine/internal/blob"
	"github.com/estateforge/prospect-engine/internal/observability"
)

// ImageOptions tunes the raster image filter and re-encoding.
type ImageOptions struct {
	MinWidth     int
	MinHeight    int
	MinArea      int
	MaxDimension int
	MaxImages    int
	JPEGQuality  int
}

// DefaultImageOptions returns the production defaults.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{
		MinWidth:     200,
		MinHeight:    200,
		MinArea:      80000,
		MaxDimension: 1920,
		MaxImages:    20,
		JPEGQuality:  82,
	}
}

// Qualifies reports whether an image passes the icon/decoration filter.
func (o ImageOptions) Qualifies(width, height int) bool {
	if width < o.MinWidth || height < o.MinHeight {
		return false
	}
	return width*height >= o.MinArea
}

// ImageExtractor walks PDF pages for embedded raster images, filters and
// re-encodes them, and uploads each to the blob store.
type ImageExtractor struct {
	store  blob.Store
	logger *observability.Logger
	opts   ImageOptions
}

// NewImageExtractor creates an image extractor.
func NewImageExtractor(store blob.Store, logger *observability.Logger, opts ImageOptions) *ImageExtractor {
	if opts.MaxImages <= 0 {
		opts = DefaultImageOptions()
	}
	return &ImageExtractor{
		store:  store,
		logger: logger.WithStage("image-extract"),
		opts:   opts,
	}
}

// Extract decodes embedded raster images and uploads the qualifying ones.
// This stage is best-effort relative to the pipeline: a PDF that cannot be
// loaded yields an empty report, and a single image failing to decode or
// upload is recorded and skipped, never aborting the remaining images.
func (e *ImageExtractor) Extract(ctx context.Context, buf []byte, ownerID string) *ImageReport {
	report := &ImageReport{}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(buf), conf)
	if err != nil {
		e.logger.Warn().Err(err).Msg("PDF load failed, returning empty image set")
		return report
	}

	folder := "prospects/" + ownerID

	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if len(report.Images) >= e.opts.MaxImages {
			break
		}

		pageImages, err := pdfcpu.ExtractPageImages(pdfCtx, pageNr, false)
		if err != nil {
			e.logger.Warn().Err(err).Int("page", pageNr).Msg("Page image extraction failed, skipping page")
			continue
		}

		// Walk object numbers in ascending order for stable output.
		for _, objNr := range sortedKeys(pageImages) {
			if len(report.Images) >= e.opts.MaxImages {
				break
			}

			img := pageImages[objNr]
			name := fmt.Sprintf("page%02d-obj%d", pageNr, objNr)
			item := e.processOne(ctx, img, pageNr, name, folder, report)
			report.Items = append(report.Items, item)
		}
	}

	e.logger.Info().
		Int("uploaded", len(report.Images)).
		Int("seen", len(report.Items)).
		Msg("Image extraction complete")

	return report
}

// processOne decodes, filters, resizes, re-encodes and uploads one image.
func (e *ImageExtractor) processOne(ctx context.Context, src io.Reader, pageNr int, name, folder string, report *ImageReport) ImageItem {
	item := ImageItem{Page: pageNr, Name: name}

	decoded, _, err := image.Decode(src)
	if err != nil {
		item.Status = ImageFailed
		item.Reason = fmt.Sprintf("decode: %v", err)
		e.logger.Warn().Err(err).Str("image", name).Msg("Image decode failed, skipping")
		return item
	}

	bounds := decoded.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if !e.opts.Qualifies(width, height) {
		item.Status = ImageSkipped
		item.Reason = fmt.Sprintf("below minimum size (%dx%d)", width, height)
		return item
	}

	if max(width, height) > e.opts.MaxDimension {
		decoded = downsample(decoded, e.opts.MaxDimension)
		bounds = decoded.Bounds()
		width, height = bounds.Dx(), bounds.Dy()
	}

	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, decoded, &jpeg.Options{Quality: e.opts.JPEGQuality}); err != nil {
		item.Status = ImageFailed
		item.Reason = fmt.Sprintf("encode: %v", err)
		e.logger.Warn().Err(err).Str("image", name).Msg("Image encode failed, skipping")
		return item
	}

	url, key, err := e.store.Upload(ctx, encoded.Bytes(), name+".jpg", "image/jpeg", folder)
	if err != nil {
		item.Status = ImageFailed
		item.Reason = fmt.Sprintf("upload: %v", err)
		e.logger.Warn().Err(err).Str("image", name).Msg("Image upload failed, skipping")
		return item
	}

	report.Images = append(report.Images, Image{
		Page:   pageNr,
		URL:    url,
		Key:    key,
		Width:  width,
		Height: height,
		Format: "jpeg",
		Data:   encoded.Bytes(),
	})
	item.Status = ImageOK
	return item
}

// downsample scales the image so its longest side equals maxDim, preserving
// aspect ratio.
func downsample(src image.Image, maxDim int) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var dstW, dstH int
	if width >= height {
		dstW = maxDim
		dstH = height * maxDim / width
	} else {
		dstH = maxDim
		dstW = width * maxDim / height
	}
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

func sortedKeys(m map[int]model.Image) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
