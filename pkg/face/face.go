// Face detection and embedding over pretrained models. The pipeline never
// implements any recognition itself -- an Engine wraps whichever pretrained
// backend does the work.

package face

import (
	"image"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// DescriptorSize is the length of the embedding vector produced by the
// pretrained recognition model.
const DescriptorSize = 128

// Descriptor is a fixed-length face embedding.
type Descriptor [DescriptorSize]float32

// Region is a detected face bounding box in pixel coordinates. Confidence is
// nil when the backend does not report a detection score.
type Region struct {
	X          int      `json:"x"`
	Y          int      `json:"y"`
	W          int      `json:"w"`
	H          int      `json:"h"`
	Confidence *float64 `json:"confidence"`
}

// Face is a single detection together with its embedding.
type Face struct {
	Rectangle  image.Rectangle
	Descriptor Descriptor
	Confidence *float64
}

// Region converts the detection rectangle to a serializable Region.
func (f Face) Region() Region {
	return Region{
		X:          f.Rectangle.Min.X,
		Y:          f.Rectangle.Min.Y,
		W:          f.Rectangle.Dx(),
		H:          f.Rectangle.Dy(),
		Confidence: f.Confidence,
	}
}

// Engine detects every face in an image file and embeds each one.
type Engine interface {
	Recognize(imgPath string) ([]Face, error)
}

// ID returns the identifier of the n-th face (1-based) of an image. The image
// identifier may be a file path or an S3 object key.
func ID(imageId string, n int) string {
	filename := filepath.Base(strings.ReplaceAll(imageId, "/", "_"))
	extension := filepath.Ext(filename)
	name := filename[0 : len(filename)-len(extension)]
	return name + "_face_" + strconv.Itoa(n)
}

// Cosine returns the cosine similarity between two embeddings. Zero vectors
// yield a similarity of 0 rather than dividing by zero.
func Cosine(a, b []float32) float64 {
	var dot, sumA, sumB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		sumA += float64(a[i]) * float64(a[i])
		sumB += float64(b[i]) * float64(b[i])
	}
	if sumA == 0 || sumB == 0 {
		return 0
	}
	return dot / (math.Sqrt(sumA) * math.Sqrt(sumB))
}
