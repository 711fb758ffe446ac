package qr

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/evn/dstracker/internal/models"
)

// ErrNoCode: на изображении не найден QR-код.
var ErrNoCode = fmt.Errorf("qr code on image %w", models.ErrNotFound)

const DefaultSize = 512

// MaxDecodeSide: более крупные фото уменьшаются перед распознаванием.
const MaxDecodeSide = 1600

// Encode рисует PNG с QR-кодом локации.
func Encode(text string, size int) ([]byte, error) {
	if text == "" {
		return nil, models.Validation("qr text is empty")
	}
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(text, qrcode.Medium, size)
}

func Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", models.Validation("unreadable image: %v", err)
	}

	result, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		var nf gozxing.NotFoundException
		if errors.As(err, &nf) {
			return "", ErrNoCode
		}
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	return result.GetText(), nil
}

// DecodeReader принимает JPEG, PNG или WebP (фото с камеры телефона).
func DecodeReader(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", models.Validation("unsupported image: %v", err)
	}
	return Decode(Downscale(img, MaxDecodeSide))
}

// Downscale уменьшает изображение так, чтобы длинная сторона была не больше maxSide.
func Downscale(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img
	}

	if w >= h {
		h = h * maxSide / w
		w = maxSide
	} else {
		w = w * maxSide / h
		h = maxSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
