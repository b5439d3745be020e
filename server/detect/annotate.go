package detect

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/bmharper/cimg/v2"
	"github.com/fogleman/gg"
	"github.com/roadwatch/roadwatch/pkg/detection"
)

// Annotated-frame rendering for the push stream: when the server is
// configured to push pixels, subscribers receive the frame with detection
// boxes and labels burned in, as an inline base64 JPEG.

const annotateLineWidth = 3
const annotateLabelHeight = 14

// RenderAnnotated draws the detection boxes onto the frame and returns the
// result as JPEG. Returns nil when the frame was never decoded.
func RenderAnnotated(frame *Frame, objects []detection.Detection) []byte {
	if frame.Image == nil {
		return nil
	}
	dc := gg.NewContextForImage(toNRGBA(frame.Image))
	// Boxes arrive in the frame's declared coordinate space, which can differ
	// from the pixel size of the decoded image.
	imgW, imgH := frame.Image.Width, frame.Image.Height
	for _, obj := range objects {
		r := detection.ProjectBox(obj.Box, frame.Width, frame.Height, imgW, imgH)
		dc.SetRGB(1, 0.25, 0.1)
		dc.SetLineWidth(annotateLineWidth)
		dc.DrawRectangle(float64(r.X), float64(r.Y), float64(r.Width), float64(r.Height))
		dc.Stroke()
		if obj.Label != "" {
			x, y := detection.LabelAnchor(r, annotateLabelHeight)
			dc.SetRGB(1, 1, 1)
			dc.DrawString(obj.Label, float64(x), float64(y)+annotateLabelHeight-2)
		}
	}
	buf := bytes.Buffer{}
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: 85}); err != nil {
		return nil
	}
	return buf.Bytes()
}

// cimg keeps tightly packed RGB; gg wants a stdlib image.
func toNRGBA(src *cimg.Image) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, src.Width, src.Height))
	for y := 0; y < src.Height; y++ {
		srcLine := src.Pixels[y*src.Stride : y*src.Stride+src.Width*3]
		dstLine := dst.Pix[y*dst.Stride : (y+1)*dst.Stride]
		for x := 0; x < src.Width; x++ {
			dstLine[x*4] = srcLine[x*3]
			dstLine[x*4+1] = srcLine[x*3+1]
			dstLine[x*4+2] = srcLine[x*3+2]
			dstLine[x*4+3] = 255
		}
	}
	return dst
}
