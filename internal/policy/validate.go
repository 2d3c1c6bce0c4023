package policy

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	bitrateRe        = regexp.MustCompile(`^\d+(\.\d+)?(M|k)$|^\d+$`)
	forbiddenArgChars = `;|&$(` + "`" + `${><` + "\n"

	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("bitrate", validateBitrate)
		_ = validate.RegisterValidation("ffmpegarg", validateFFmpegArg)
	})
	return validate
}

// validateBitrate accepts "\d+(\.\d+)?(M|k)" or a raw integer bits-per-
// second string (spec.md §6.4).
func validateBitrate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	return bitrateRe.MatchString(s)
}

// validateFFmpegArg rejects shell metacharacters in free-form ffmpeg
// argument strings — the hard security guard from spec.md §4.6/§6.4.
func validateFFmpegArg(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) > 1024 {
		return false
	}
	return !strings.ContainsAny(s, forbiddenArgChars)
}

// Validate runs struct-tag validation plus the cross-field rules that
// don't fit a single tag (CRF/bitrate mutual exclusion, schema_version
// floor, mandatory phases key) — spec.md §4.6.
func (d Document) Validate() error {
	if d.SchemaVersion < CurrentSchemaVersion {
		return ErrSchemaVersionTooOld
	}
	if len(d.Phases) == 0 {
		return ErrFlatPolicyRejected
	}
	if err := getValidator().Struct(d); err != nil {
		return fmt.Errorf("policy validation failed: %w", err)
	}
	for _, phase := range d.Phases {
		if phase.Name == PhaseTranscode {
			if err := phase.Transcode.Video.Quality.Validate(); err != nil {
				return fmt.Errorf("phase %s: %w", phase.Name, err)
			}
		}
		for _, token := range []Resolution{phase.Transcode.Video.SkipIf.ResolutionWithin} {
			if token != "" && !ValidResolutions[token] {
				return fmt.Errorf("phase %s: invalid resolution token %q", phase.Name, token)
			}
		}
	}
	return nil
}
