// Package model defines the entities shared by every layer of the asset
// indexer: Project, Asset, Dependency, and the supporting enums and token
// types that flow from Scanner through Extractor and Resolver into Store.
package model

import "strings"

// AssetType is the closed classification set assigned to every indexed
// file. Classification is total: every extension maps to a type, with
// AssetTypeOther as the catch-all.
type AssetType string

const (
	AssetTypeTexture   AssetType = "texture"
	AssetTypeMaterial  AssetType = "material"
	AssetTypeModel     AssetType = "model"
	AssetTypeScript    AssetType = "script"
	AssetTypeShader    AssetType = "shader"
	AssetTypePrefab    AssetType = "prefab"
	AssetTypeScene     AssetType = "scene"
	AssetTypeAudio     AssetType = "audio"
	AssetTypeAnimation AssetType = "animation"
	AssetTypeFont      AssetType = "font"
	AssetTypeConfig    AssetType = "config"
	AssetTypeOther     AssetType = "other"
)

// extensionTypes maps a lowercase, dot-less extension to its asset type.
// Classification is by extension only; extractor.Extract calls
// ClassifyExtension directly and a sidecar does not change the result.
var extensionTypes = map[string]AssetType{
	"png": AssetTypeTexture, "jpg": AssetTypeTexture, "jpeg": AssetTypeTexture,
	"tga": AssetTypeTexture, "bmp": AssetTypeTexture, "gif": AssetTypeTexture,
	"psd": AssetTypeTexture, "exr": AssetTypeTexture, "hdr": AssetTypeTexture,
	"tiff": AssetTypeTexture, "tif": AssetTypeTexture,

	"mat": AssetTypeMaterial,

	"fbx": AssetTypeModel, "obj": AssetTypeModel, "dae": AssetTypeModel,
	"gltf": AssetTypeModel, "glb": AssetTypeModel, "blend": AssetTypeModel,
	"3ds": AssetTypeModel,

	"cs": AssetTypeScript, "js": AssetTypeScript, "py": AssetTypeScript,
	"boo": AssetTypeScript,

	"shader": AssetTypeShader, "cginc": AssetTypeShader, "hlsl": AssetTypeShader,
	"glsl": AssetTypeShader, "compute": AssetTypeShader,

	"prefab": AssetTypePrefab,

	"unity": AssetTypeScene,

	"wav": AssetTypeAudio, "mp3": AssetTypeAudio, "ogg": AssetTypeAudio,
	"aiff": AssetTypeAudio, "flac": AssetTypeAudio,

	"anim": AssetTypeAnimation, "controller": AssetTypeAnimation,

	"ttf": AssetTypeFont, "otf": AssetTypeFont, "fon": AssetTypeFont,

	"json": AssetTypeConfig, "xml": AssetTypeConfig, "yaml": AssetTypeConfig,
	"yml": AssetTypeConfig, "asset": AssetTypeConfig, "txt": AssetTypeConfig,
}

// ClassifyExtension returns the AssetType for a lowercase extension without
// its leading dot. Unknown extensions classify as AssetTypeOther — the
// function is total, it never fails.
func ClassifyExtension(ext string) AssetType {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return AssetTypeOther
}

// TextBased reports whether assets of this type have their body scanned for
// outbound `guid:`/path reference tokens by the Extractor.
func (t AssetType) TextBased() bool {
	switch t {
	case AssetTypeMaterial, AssetTypePrefab, AssetTypeScene, AssetTypeAnimation, AssetTypeConfig:
		return true
	default:
		return false
	}
}

// Project is a rooted directory tree that is the unit of indexing.
type Project struct {
	ID           string
	RootPath     string
	Name         string
	LastScanTime int64 // unix seconds; zero means never scanned
	FileCount    int
}

// Sentinel thumbnail values stored in Asset.ThumbnailPath in place of a real
// cache path, suppressing retry until an explicit regenerate.
const (
	ThumbnailTooLarge   = "TOO_LARGE"
	ThumbnailUnsupported = "UNSUPPORTED"
)

// Asset is a single indexed file plus whatever type-specific metadata the
// Extractor could pull from its sidecar and body.
type Asset struct {
	ID             string
	ProjectID      string
	AbsolutePath   string
	RelativePath   string
	FileName       string
	Extension      string
	AssetType      AssetType
	SizeBytes      int64
	ModifiedTime   int64 // unix seconds
	ContentHash    uint64
	GUID           string // empty when absent
	ThumbnailPath  string // empty (null), a cache path, or a sentinel

	// References is the Extractor's outbound token multiset, persisted
	// alongside the asset row so the Resolver can replay it without
	// re-parsing the file on every scan.
	References []ReferenceToken

	// Type-specific extracted fields, set only when AssetType matches.
	Material *MaterialInfo
	Model    *ModelInfo

	DeletedAt int64 // unix seconds; zero means the asset is live
}

// ReferenceKind distinguishes how a reference token names its target.
type ReferenceKind string

const (
	ReferenceKindGUID ReferenceKind = "guid"
	ReferenceKindPath ReferenceKind = "path"
)

// ReferenceToken is one outbound reference extracted from an asset body,
// prior to resolution against the Store.
type ReferenceToken struct {
	Kind       ReferenceKind
	TargetGUID string // set when Kind == ReferenceKindGUID
	TargetPath string // set when Kind == ReferenceKindPath
	SlotName   string // optional nearest preceding "- <slot>:" context
}

// Dependency is a directed edge: Source depends on Target.
type Dependency struct {
	SourceAssetID string
	TargetAssetID string
	Kind          ReferenceKind
	SlotName      string
}

// TypeCount is a derived query result, never stored.
type TypeCount struct {
	AssetType AssetType
	Count     int
}

// MaterialTexture is one texture slot referenced by a material.
type MaterialTexture struct {
	SlotName    string
	TextureGUID string // empty when the slot has no resolvable guid
}

// MaterialInfo is the Extractor's parse of a Unity-style .mat file.
type MaterialInfo struct {
	ShaderName string
	Textures   []MaterialTexture
}

// MainTexture returns the texture slot used for material thumbnails: the
// first slot whose name suggests it carries the primary albedo/diffuse map,
// falling back to the first listed texture.
func (m *MaterialInfo) MainTexture() (MaterialTexture, bool) {
	if m == nil || len(m.Textures) == 0 {
		return MaterialTexture{}, false
	}
	for _, name := range []string{"albedo", "diffuse", "maintex", "base"} {
		for _, tex := range m.Textures {
			if strings.Contains(strings.ToLower(tex.SlotName), name) {
				return tex, true
			}
		}
	}
	return m.Textures[0], true
}

// HasSlotContaining reports whether any texture slot name contains any of
// the given (lowercase) substrings — used by the material placeholder
// palette heuristic.
func (m *MaterialInfo) HasSlotContaining(substrings ...string) bool {
	if m == nil {
		return false
	}
	for _, tex := range m.Textures {
		slot := strings.ToLower(tex.SlotName)
		for _, s := range substrings {
			if strings.Contains(slot, s) {
				return true
			}
		}
	}
	return false
}

// ModelInfo is the Extractor's best-effort parse of a 3D model file. Every
// field is optional: a parse that can't determine a count leaves it nil
// rather than guessing zero.
type ModelInfo struct {
	VertexCount   *uint64
	TriangleCount *uint64
	SubmeshCount  *uint32
	HasNormals    bool
	HasUVs        bool
}
