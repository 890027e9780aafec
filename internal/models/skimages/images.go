// Package skimages traite les images du portfolio uploadées depuis
// l'admin: validation du type, redimensionnement, réencodage.
package skimages

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"
)

const MaxWidth = 1600

// Resize réduit une image trop large en conservant le ratio.
func Resize(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Si l'image est déjà plus petite, la retourner telle quelle
	if width <= maxWidth {
		return img
	}

	ratio := float64(maxWidth) / float64(width)
	newWidth := maxWidth
	newHeight := int(float64(height) * ratio)

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))

	// Interpolation de haute qualité
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return dst
}

// Process valide le contenu d'un upload, le redimensionne si besoin
// et retourne les octets réencodés avec leur extension.
func Process(data []byte) ([]byte, string, error) {
	contentType := http.DetectContentType(data)

	var (
		img image.Image
		err error
		ext string
	)
	switch contentType {
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
		ext = ".jpg"
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
		ext = ".png"
	default:
		return nil, "", fmt.Errorf("type d'image non supporté: %s", contentType)
	}
	if err != nil {
		return nil, "", fmt.Errorf("image illisible: %w", err)
	}

	img = Resize(img, MaxWidth)

	var buf bytes.Buffer
	switch ext {
	case ".jpg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	case ".png":
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, "", fmt.Errorf("réencodage impossible: %w", err)
	}

	return buf.Bytes(), ext, nil
}
