// Package rasterize turns document bytes into ordered page images.
package rasterize

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// Rasterizer converts a document into PNG-encoded page images, one per
// physical page, in page order.
type Rasterizer interface {
	Pages(data []byte) ([][]byte, error)
}

// Fitz rasterizes PDFs through MuPDF.
type Fitz struct {
	DPI float64
}

func NewFitz(dpi float64) *Fitz {
	if dpi <= 0 {
		dpi = 150
	}
	return &Fitz{DPI: dpi}
}

func (f *Fitz) Pages(data []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer doc.Close()

	pages := make([][]byte, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		png, err := doc.ImagePNG(n, f.DPI)
		if err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", n+1, err)
		}
		pages = append(pages, png)
	}
	return pages, nil
}
