package ticket

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// Standard QR render size in pixels; scans reliably from phone screens
// and prints.
const QRSize = 300

// QRPNG renders the token as a PNG QR image. Medium error correction
// (15% recovery) matches what common scanner apps expect.
func QRPNG(token string, size int) ([]byte, error) {
	if size <= 0 {
		size = QRSize
	}
	qr, err := qrcode.New(token, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("build qr: %w", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("encode qr png: %w", err)
	}
	return png, nil
}

// QRDataURI renders the token as a data:image/png;base64 URI suitable
// for direct embedding in HTML email.
func QRDataURI(token string, size int) (string, error) {
	png, err := QRPNG(token, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
