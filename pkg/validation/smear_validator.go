package validation

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"go-smear-analyzer/pkg/models"
)

// ValidationLimits defines configurable limits for smear input validation.
type ValidationLimits struct {
	// MaxFileBytes is the upload size ceiling.
	MaxFileBytes int64

	// MinWidth and MinHeight are the minimum decoded dimensions.
	MinWidth  int
	MinHeight int

	// MinBloodContent is the minimum fraction of pixels that must fall
	// inside a blood reference color range. Scores at or below this
	// fraction are rejected.
	MinBloodContent float64
}

// DefaultValidationLimits returns the standard validation limits.
func DefaultValidationLimits() ValidationLimits {
	return ValidationLimits{
		MaxFileBytes:    50 * 1024 * 1024,
		MinWidth:        512,
		MinHeight:       512,
		MinBloodContent: 0.30,
	}
}

// Rejection reasons reported in ValidationVerdict.Reason.
const (
	ReasonMaliciousExtension    = "malicious file extension"
	ReasonFileTooLarge          = "file too large"
	ReasonCorruptedImage        = "corrupted image"
	ReasonLowResolution         = "low resolution"
	ReasonInsufficientBloodContent = "insufficient blood content"
)

// deniedExtensions is a denylist of executable and script extensions.
var deniedExtensions = map[string]bool{
	".exe": true, ".dll": true, ".bat": true, ".cmd": true,
	".sh": true, ".php": true, ".js": true, ".jar": true,
	".msi": true, ".scr": true, ".vbs": true, ".ps1": true,
	".py": true,
}

// bloodReferenceRanges are the RGB bands a plausible smear pixel is expected
// to fall in: stained red cells, white cell nuclei and platelets.
var bloodReferenceRanges = []models.ColorRange{
	{Name: "red_cell", Lower: [3]uint8{120, 40, 40}, Upper: [3]uint8{255, 180, 180}},
	{Name: "white_cell_nucleus", Lower: [3]uint8{60, 30, 100}, Upper: [3]uint8{180, 120, 230}},
	{Name: "platelet", Lower: [3]uint8{140, 90, 120}, Upper: [3]uint8{230, 170, 210}},
}

// SmearValidator gatekeeps raw uploads before any analysis runs. Checks are
// ordered and fail fast: extension, size, decode, resolution, blood content.
type SmearValidator struct {
	limits ValidationLimits
}

// NewSmearValidator creates a validator with default limits.
func NewSmearValidator() *SmearValidator {
	return &SmearValidator{limits: DefaultValidationLimits()}
}

// NewSmearValidatorWithLimits creates a validator with custom limits.
func NewSmearValidatorWithLimits(limits ValidationLimits) *SmearValidator {
	return &SmearValidator{limits: limits}
}

// Validate runs all checks and returns the verdict. On success the verdict's
// Score carries the blood-content fraction.
func (v *SmearValidator) Validate(data []byte, filename string) models.ValidationVerdict {
	_, verdict := v.ValidateDecode(data, filename)
	return verdict
}

// ValidateDecode runs all checks and additionally returns the decoded image
// so callers that proceed to analysis do not decode twice. The image is nil
// whenever the verdict is invalid, except for failures after a successful
// decode.
func (v *SmearValidator) ValidateDecode(data []byte, filename string) (image.Image, models.ValidationVerdict) {
	ext := strings.ToLower(filepath.Ext(filename))
	if deniedExtensions[ext] {
		return nil, models.ValidationVerdict{Reason: ReasonMaliciousExtension}
	}

	if int64(len(data)) > v.limits.MaxFileBytes {
		return nil, models.ValidationVerdict{Reason: ReasonFileTooLarge}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.ValidationVerdict{Reason: ReasonCorruptedImage}
	}

	bounds := img.Bounds()
	if bounds.Dx() < v.limits.MinWidth || bounds.Dy() < v.limits.MinHeight {
		return img, models.ValidationVerdict{Reason: ReasonLowResolution}
	}

	score := bloodContentScore(img)
	if score <= v.limits.MinBloodContent {
		return img, models.ValidationVerdict{Reason: ReasonInsufficientBloodContent, Score: score}
	}

	return img, models.ValidationVerdict{Valid: true, Score: score}
}

// bloodContentScore is the fraction of pixels inside any blood reference
// color range.
func bloodContentScore(img image.Image) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	matched := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)
			for _, rng := range bloodReferenceRanges {
				if rng.Contains(r8, g8, b8) {
					matched++
					break
				}
			}
		}
	}

	return float64(matched) / float64(total)
}
