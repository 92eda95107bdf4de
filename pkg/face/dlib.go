package face

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"path/filepath"
	"strings"

	goface "github.com/Kagami/go-face"
	"github.com/disintegration/imaging"
)

// DlibEngine runs the pretrained dlib face detector and the 128-dimensional
// ResNet face recognition model. The model files (shape predictor, CNN
// detector and recognition net) must live in the models directory passed to
// NewDlibEngine.
type DlibEngine struct {
	rec *goface.Recognizer
}

func NewDlibEngine(modelsDir string) (*DlibEngine, error) {
	rec, err := goface.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("cannot load face models from %s: %w", modelsDir, err)
	}
	return &DlibEngine{rec: rec}, nil
}

// Recognize detects every face in the image and embeds each one. dlib only
// decodes JPEG, so other formats are re-encoded in memory first.
func (e *DlibEngine) Recognize(imgPath string) ([]Face, error) {
	var (
		found []goface.Face
		err   error
	)
	ext := strings.ToLower(filepath.Ext(imgPath))
	if ext == ".jpg" || ext == ".jpeg" {
		found, err = e.rec.RecognizeFile(imgPath)
	} else {
		var imgBytes []byte
		imgBytes, err = jpegBytes(imgPath)
		if err != nil {
			return nil, err
		}
		found, err = e.rec.Recognize(imgBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", imgPath, err)
	}

	faces := make([]Face, 0, len(found))
	for _, f := range found {
		faces = append(faces, Face{
			Rectangle:  f.Rectangle,
			Descriptor: Descriptor(f.Descriptor),
		})
	}
	return faces, nil
}

func (e *DlibEngine) Close() {
	e.rec.Close()
}

func jpegBytes(imgPath string) ([]byte, error) {
	img, err := imaging.Open(imgPath)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", imgPath, err)
	}
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
