// pkg/render/engo/assets.go
package engo

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

// Sprite keys
const (
	SpriteBall   = "ball"
	SpriteShadow = "shadow"
	SpriteCar    = "car"
	SpritePitch  = "pitch"
)

// spriteResolution is the pixel size of the generated ball, shadow and car images.
// Sprites are scaled by their SpaceComponent, so this only affects sharpness.
const spriteResolution = 64

var (
	colorBall   = color.NRGBA{245, 245, 245, 255}
	colorShadow = color.NRGBA{0, 0, 0, 96}
	colorCar    = color.NRGBA{40, 110, 230, 255}
	colorScreen = color.NRGBA{20, 30, 40, 255}
	colorGrass  = color.NRGBA{46, 125, 50, 255}
	colorLine   = color.NRGBA{230, 240, 230, 255}
	colorGoal   = color.NRGBA{250, 200, 40, 255}
)

// AssetManager generates the match sprites. There are no image files: every sprite
// is drawn at startup.
type AssetManager struct {
	images   map[string]*image.NRGBA
	textures map[string]common.Drawable
}

// NewAssetManager creates an empty asset manager
func NewAssetManager() *AssetManager {
	return &AssetManager{
		images:   make(map[string]*image.NRGBA),
		textures: make(map[string]common.Drawable),
	}
}

// GenerateImages draws every sprite image for arena. It needs no GL context.
func (am *AssetManager) GenerateImages(arena physics.Arena, pitchPixelsPerMetre float64) {
	am.images[SpriteBall] = discImage(spriteResolution, colorBall)
	am.images[SpriteShadow] = discImage(spriteResolution, colorShadow)
	am.images[SpriteCar] = carImage(spriteResolution/2, spriteResolution)
	am.images[SpritePitch] = pitchImage(arena, pitchPixelsPerMetre)
}

// LoadAssets uploads the generated images as textures. It must run on the GL thread.
func (am *AssetManager) LoadAssets(arena physics.Arena, pitchPixelsPerMetre float64) error {
	if len(am.images) == 0 {
		am.GenerateImages(arena, pitchPixelsPerMetre)
	}
	for name, img := range am.images {
		texture := common.NewTextureSingle(common.NewImageObject(img))
		am.textures[name] = texture
	}
	return nil
}

// Image returns a generated sprite image, or nil before GenerateImages
func (am *AssetManager) Image(name string) *image.NRGBA {
	return am.images[name]
}

// Sprite returns a loaded texture, or nil before LoadAssets
func (am *AssetManager) Sprite(name string) common.Drawable {
	return am.textures[name]
}

func newCanvas(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	return img
}

// discImage draws a filled circle touching the edges of a size by size image
func discImage(size int, c color.NRGBA) *image.NRGBA {
	img := newCanvas(size, size)
	r := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) + 0.5 - r
			dy := float64(y) + 0.5 - r
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, c)
			}
		}
	}
	return img
}

// carImage draws the car body with a windscreen stripe at the front.
// The front is the bottom edge, matching local +z pointing down the screen.
func carImage(width, height int) *image.NRGBA {
	img := newCanvas(width, height)
	draw.Draw(img, img.Bounds(), &image.Uniform{colorCar}, image.Point{}, draw.Src)

	screenTop := height * 3 / 4
	screenBottom := height * 7 / 8
	inset := width / 6
	draw.Draw(img,
		image.Rect(inset, screenTop, width-inset, screenBottom),
		&image.Uniform{colorScreen}, image.Point{}, draw.Src)
	return img
}

// pitchImage draws the grass, the touch lines, the halfway line and both goal mouths
func pitchImage(arena physics.Arena, ppm float64) *image.NRGBA {
	spanX := arena.Max.X() - arena.Min.X()
	spanZ := arena.Max.Z() - arena.Min.Z()
	width := int(math.Ceil(spanX * ppm))
	height := int(math.Ceil(spanZ * ppm))
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	img := newCanvas(width, height)
	draw.Draw(img, img.Bounds(), &image.Uniform{colorGrass}, image.Point{}, draw.Src)

	line := int(math.Max(1, math.Round(ppm*0.4)))
	fill := func(r image.Rectangle) {
		draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{colorLine}, image.Point{}, draw.Src)
	}

	// boundary
	fill(image.Rect(0, 0, width, line))
	fill(image.Rect(0, height-line, width, height))
	fill(image.Rect(0, 0, line, height))
	fill(image.Rect(width-line, 0, width, height))

	// halfway line
	mid := height / 2
	fill(image.Rect(0, mid-line/2, width, mid-line/2+line))

	// goal mouths span |x| < HalfWidth on both end lines
	toPx := func(x float64) int { return int(math.Round((x - arena.Min.X()) * ppm)) }
	left, right := toPx(-arena.Goal.HalfWidth), toPx(arena.Goal.HalfWidth)
	depth := int(math.Max(float64(line), math.Round((arena.Max.Z()-arena.Goal.LineZ)*ppm)))
	goal := &image.Uniform{colorGoal}
	draw.Draw(img, image.Rect(left, 0, right, depth), goal, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(left, height-depth, right, height), goal, image.Point{}, draw.Src)

	return img
}
