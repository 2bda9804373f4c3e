package clip

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const imageSize = 224

// CLIP normalization constants (RGB channel mean and std).
var (
	channelMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	channelStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// preprocess decodes the image, resizes it to the model's input size, and
// normalizes it into a flat [1, 3, H, W] float32 tensor, channels first.
func preprocess(data []byte) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	resized := image.NewRGBA(image.Rect(0, 0, imageSize, imageSize))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	pixels := make([]float32, 3*imageSize*imageSize)
	plane := imageSize * imageSize
	for y := 0; y < imageSize; y++ {
		for x := 0; x < imageSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			i := y*imageSize + x
			pixels[i] = (float32(r>>8)/255 - channelMean[0]) / channelStd[0]
			pixels[plane+i] = (float32(g>>8)/255 - channelMean[1]) / channelStd[1]
			pixels[2*plane+i] = (float32(b>>8)/255 - channelMean[2]) / channelStd[2]
		}
	}
	return pixels, nil
}
