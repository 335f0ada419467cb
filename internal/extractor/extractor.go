// Package extractor produces the full Asset row for a single new-or-changed
// file: sidecar GUID, outbound reference tokens, and type-specific body
// metadata (material shader/textures, model vertex/triangle counts).
//
// Every parse here is best-effort: a malformed body yields a partially
// populated Asset, never an aborted scan. Sidecars, reference tokens,
// materials, .obj and ASCII .fbx bodies are scanned line by line, mirroring
// the line-oriented scan the teacher's own symbol extractor uses over source
// files. .dae and .gltf bodies and binary .fbx files are read whole into
// memory, with no size limit.
package extractor

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/standardbeagle/assetlib/internal/logging"
	"github.com/standardbeagle/assetlib/internal/model"
)

var log = logging.New("extractor")

// guidLine matches `guid: <hex>` (with an optional surrounding fileID map
// entry, as emitted in .meta/.mat/.prefab bodies).
var guidLine = regexp.MustCompile(`guid:\s*([0-9a-fA-F]{32})`)

// slotLine matches a record key line of the form `- <slot>:`, the YAML
// list-entry shape the spec defines as the slot-context marker. Plain
// (non-dashed) keys are structural nesting, not slot boundaries.
var slotLine = regexp.MustCompile(`^\s*-\s*([A-Za-z0-9_]+)\s*:\s*\{?\s*$`)

var shaderNameLine = regexp.MustCompile(`m_Name:\s*(\S+)`)

// Extract builds the full Asset for one file, given its already-computed
// scan-time identity fields (paths, size, mtime) and a content hash.
func Extract(projectID, absolutePath, relativePath, fileName, extension string, sizeBytes, modifiedTime int64, contentHash uint64) model.Asset {
	assetType := model.ClassifyExtension(extension)

	asset := model.Asset{
		ProjectID:    projectID,
		AbsolutePath: absolutePath,
		RelativePath: relativePath,
		FileName:     fileName,
		Extension:    extension,
		AssetType:    assetType,
		SizeBytes:    sizeBytes,
		ModifiedTime: modifiedTime,
		ContentHash:  contentHash,
	}

	if guid, ok := readSidecarGUID(absolutePath); ok {
		asset.GUID = guid
	}

	if assetType.TextBased() {
		asset.References = extractReferences(absolutePath)
	}

	switch assetType {
	case model.AssetTypeMaterial:
		if mat, err := parseMaterial(absolutePath); err != nil {
			log.Warnf("parse material %s: %v", absolutePath, err)
		} else {
			asset.Material = mat
		}
	case model.AssetTypeModel:
		if mdl, err := parseModel(absolutePath, extension); err != nil {
			log.Warnf("parse model %s: %v", absolutePath, err)
		} else {
			asset.Model = mdl
		}
	}

	return asset
}

// readSidecarGUID reads `<path>.meta` and returns the first `guid: <hex>`
// value it contains. Absence of the sidecar, or absence of a guid line
// inside it, is not an error — both just return ok=false.
func readSidecarGUID(absolutePath string) (string, bool) {
	f, err := os.Open(absolutePath + ".meta")
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if m := guidLine.FindStringSubmatch(scanner.Text()); m != nil {
			return strings.ToLower(m[1]), true
		}
	}
	return "", false
}

// extractReferences scans a text-based asset body line-wise, collecting
// guid and path reference tokens. A guid token's slot name is the nearest
// preceding line matching slotLine; once consumed, the pending slot is
// cleared so it isn't reused for a later unrelated guid in the same block.
func extractReferences(absolutePath string) []model.ReferenceToken {
	f, err := os.Open(absolutePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	var tokens []model.ReferenceToken
	pendingSlot := ""

	for scanner.Scan() {
		line := scanner.Text()

		if m := guidLine.FindStringSubmatch(line); m != nil {
			tokens = append(tokens, model.ReferenceToken{
				Kind:       model.ReferenceKindGUID,
				TargetGUID: strings.ToLower(m[1]),
				SlotName:   pendingSlot,
			})
			pendingSlot = ""
			continue
		}

		if p, ok := extractPathReference(line); ok {
			tokens = append(tokens, model.ReferenceToken{
				Kind:       model.ReferenceKindPath,
				TargetPath: p,
				SlotName:   pendingSlot,
			})
			pendingSlot = ""
			continue
		}

		if m := slotLine.FindStringSubmatch(line); m != nil {
			pendingSlot = m[1]
		}
	}

	return tokens
}

// pathReferencePattern matches a quoted relative or project-rooted path
// ending in a known asset-bearing extension, used to detect path-style
// references that appear outside guid contexts (e.g. `source: "../tex.png"`).
var pathReferencePattern = regexp.MustCompile(`["']([\w./\-]+\.(?:png|jpg|jpeg|tga|bmp|psd|mat|fbx|obj|prefab|unity|wav|mp3))["']`)

func extractPathReference(line string) (string, bool) {
	m := pathReferencePattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// parseMaterial extracts shader name and texture slots from a Unity-style
// .mat body: `m_Shader: {...} m_Name: <name>` for the shader, and
// `m_Texture: {... guid: <hex> ...}`-bearing records for texture slots.
func parseMaterial(absolutePath string) (*model.MaterialInfo, error) {
	f, err := os.Open(absolutePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	info := &model.MaterialInfo{}
	inShaderBlock := false
	currentSlot := ""
	sawTextureInSlot := false

	flushSlot := func() {
		if currentSlot == "" {
			return
		}
		if !sawTextureInSlot {
			info.Textures = append(info.Textures, model.MaterialTexture{SlotName: currentSlot})
		}
		currentSlot = ""
		sawTextureInSlot = false
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.Contains(trimmed, "m_Shader:") {
			inShaderBlock = true
			continue
		}
		if inShaderBlock {
			if m := shaderNameLine.FindStringSubmatch(trimmed); m != nil {
				info.ShaderName = m[1]
				inShaderBlock = false
			}
		}

		if strings.Contains(trimmed, "m_Texture:") {
			if m := guidLine.FindStringSubmatch(trimmed); m != nil && currentSlot != "" {
				info.Textures = append(info.Textures, model.MaterialTexture{
					SlotName:    currentSlot,
					TextureGUID: strings.ToLower(m[1]),
				})
				sawTextureInSlot = true
			}
			continue
		}

		if m := slotLine.FindStringSubmatch(line); m != nil {
			flushSlot()
			currentSlot = m[1]
		}
	}
	flushSlot()

	return info, nil
}

// parseModel dispatches a best-effort body parse by extension (.glb shares
// parseGLTF with .gltf). Any format without a parser below (e.g. .blend)
// returns a placeholder ModelInfo with all counts left nil.
func parseModel(absolutePath, extension string) (*model.ModelInfo, error) {
	ext := strings.ToLower(strings.TrimPrefix(extension, "."))
	switch ext {
	case "obj":
		return parseOBJ(absolutePath)
	case "dae":
		return parseDAE(absolutePath)
	case "gltf", "glb":
		return parseGLTF(absolutePath)
	case "fbx":
		return parseFBX(absolutePath)
	default:
		return &model.ModelInfo{}, nil
	}
}

func parseOBJ(absolutePath string) (*model.ModelInfo, error) {
	f, err := os.Open(absolutePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	var vertices, normals, uvs, triangles uint64
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "v "):
			vertices++
		case strings.HasPrefix(line, "vn "):
			normals++
		case strings.HasPrefix(line, "vt "):
			uvs++
		case strings.HasPrefix(line, "f "):
			fields := strings.Fields(line)[1:]
			n := uint64(len(fields))
			if n >= 3 {
				triangles += n - 2
			}
		}
	}

	return &model.ModelInfo{
		VertexCount:   &vertices,
		TriangleCount: &triangles,
		HasNormals:    normals > 0,
		HasUVs:        uvs > 0,
	}, nil
}

var (
	daePositionsCount = regexp.MustCompile(`positions-array[^>]*count="(\d+)"`)
	daeTrianglesCount = regexp.MustCompile(`<triangles[^>]*count="(\d+)"`)
)

func parseDAE(absolutePath string) (*model.ModelInfo, error) {
	data, err := os.ReadFile(absolutePath)
	if err != nil {
		return nil, err
	}
	text := string(data)

	info := &model.ModelInfo{
		HasNormals: strings.Contains(text, "NORMAL"),
		HasUVs:     strings.Contains(text, "TEXCOORD"),
	}

	if m := daePositionsCount.FindStringSubmatch(text); m != nil {
		if n, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			v := n / 3
			info.VertexCount = &v
		}
	}

	var triSum uint64
	found := false
	for _, m := range daeTrianglesCount.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			triSum += n
			found = true
		}
	}
	if found {
		info.TriangleCount = &triSum
	}

	return info, nil
}

func parseGLTF(absolutePath string) (*model.ModelInfo, error) {
	fi, err := os.Stat(absolutePath)
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 {
		return &model.ModelInfo{}, nil
	}

	if strings.HasSuffix(strings.ToLower(absolutePath), ".glb") {
		return &model.ModelInfo{HasNormals: true, HasUVs: true}, nil
	}

	data, err := os.ReadFile(absolutePath)
	if err != nil {
		return nil, err
	}
	hasMeshes := strings.Contains(string(data), `"meshes"`)
	return &model.ModelInfo{HasNormals: hasMeshes, HasUVs: hasMeshes}, nil
}

var (
	fbxBinaryMagic = []byte("Kaydara FBX Binary")
	fbxVerticesASCII = regexp.MustCompile(`Vertices:\s*\*\s*(\d+)`)
)

func parseFBX(absolutePath string) (*model.ModelInfo, error) {
	f, err := os.Open(absolutePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, 18)
	n, _ := f.Read(header)
	header = header[:n]

	if len(header) >= 18 && string(header) == string(fbxBinaryMagic) {
		return parseFBXBinary(absolutePath)
	}
	return parseFBXASCII(absolutePath)
}

func parseFBXBinary(absolutePath string) (*model.ModelInfo, error) {
	data, err := os.ReadFile(absolutePath)
	if err != nil {
		return nil, err
	}
	return &model.ModelInfo{
		HasNormals: containsBytes(data, "Normals"),
		HasUVs:     containsBytes(data, "UV"),
	}, nil
}

func parseFBXASCII(absolutePath string) (*model.ModelInfo, error) {
	f, err := os.Open(absolutePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	info := &model.ModelInfo{}
	for scanner.Scan() {
		line := scanner.Text()
		if m := fbxVerticesASCII.FindStringSubmatch(line); m != nil {
			if n, err := strconv.ParseUint(m[1], 10, 64); err == nil {
				v := n / 3
				info.VertexCount = &v
			}
		}
		if strings.Contains(line, "LayerElementNormal") {
			info.HasNormals = true
		}
		if strings.Contains(line, "LayerElementUV") {
			info.HasUVs = true
		}
	}
	return info, nil
}

func containsBytes(haystack []byte, needle string) bool {
	return strings.Contains(string(haystack), needle)
}
