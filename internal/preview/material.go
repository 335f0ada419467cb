package preview

import (
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/standardbeagle/assetlib/internal/model"
)

// generateMaterial resolves the material's main texture slot and reuses its
// thumbnail by copying it; if no usable texture resolves, it renders a
// parametric placeholder disc instead.
func (g *Generator) generateMaterial(projectID string, asset model.Asset) string {
	if asset.Material != nil {
		if tex, ok := asset.Material.MainTexture(); ok && tex.TextureGUID != "" {
			if target, err := g.store.GetAssetByGUID(projectID, tex.TextureGUID); err == nil && target != nil {
				if target.ThumbnailPath != "" && target.ThumbnailPath != model.ThumbnailTooLarge && target.ThumbnailPath != model.ThumbnailUnsupported {
					cachePath := filepath.Join(g.cacheDir, materialCacheKey(asset.AbsolutePath, asset.ModifiedTime))
					if err := copyFile(target.ThumbnailPath, cachePath); err == nil {
						return cachePath
					}
				}
			}
		}
	}

	cachePath := filepath.Join(g.cacheDir, materialCacheKey(asset.AbsolutePath, asset.ModifiedTime))
	img := renderPlaceholder(asset.Material, g.thumbnailMax)
	if err := writeAtomicPNG(cachePath, img); err != nil {
		log.Warnf("write material placeholder %s: %v", cachePath, err)
		return model.ThumbnailUnsupported
	}
	return cachePath
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// placeholderPalette picks a base tint by slot-name heuristics: a material
// referencing normal/bump slots reads cooler (blue-leaning), metallic reads
// neutral gray, emission reads warm. The default is a muted gray-green.
func placeholderPalette(mat *model.MaterialInfo) color.RGBA {
	switch {
	case mat.HasSlotContaining("emission", "emissive"):
		return color.RGBA{R: 224, G: 160, B: 60, A: 255}
	case mat.HasSlotContaining("metallic", "specular"):
		return color.RGBA{R: 150, G: 150, B: 158, A: 255}
	case mat.HasSlotContaining("normal", "bump"):
		return color.RGBA{R: 100, G: 120, B: 200, A: 255}
	default:
		return color.RGBA{R: 120, G: 140, B: 120, A: 255}
	}
}

// renderPlaceholder draws a shaded disc on a dark background: a cheap
// parametric stand-in for a material with no resolvable main texture. The
// disc is lit from the upper-left, giving it a sphere-like shading gradient.
func renderPlaceholder(mat *model.MaterialInfo, size uint) image.Image {
	if size == 0 {
		size = 128
	}
	dim := int(size)
	img := image.NewRGBA(image.Rect(0, 0, dim, dim))

	background := color.RGBA{R: 24, G: 24, B: 28, A: 255}
	base := placeholderPalette(mat)

	cx, cy := float64(dim)/2, float64(dim)/2
	radius := float64(dim) * 0.42
	lightX, lightY := -0.5, -0.5

	for y := 0; y < dim; y++ {
		for x := 0; x < dim; x++ {
			dx := (float64(x) + 0.5 - cx) / radius
			dy := (float64(y) + 0.5 - cy) / radius
			distSq := dx*dx + dy*dy
			if distSq > 1 {
				img.Set(x, y, background)
				continue
			}

			dz := math.Sqrt(1 - distSq)
			shade := dx*lightX + dy*lightY + dz*0.8
			if shade < 0.15 {
				shade = 0.15
			}
			if shade > 1 {
				shade = 1
			}

			img.Set(x, y, color.RGBA{
				R: scaleChannel(base.R, shade),
				G: scaleChannel(base.G, shade),
				B: scaleChannel(base.B, shade),
				A: 255,
			})
		}
	}

	return img
}

func scaleChannel(c uint8, shade float64) uint8 {
	v := float64(c) * shade
	if v > 255 {
		v = 255
	}
	return uint8(v)
}
