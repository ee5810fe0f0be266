package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/olivoil/otpwatch/internal/otp"
)

func TestFormatDetection(t *testing.T) {
	t.Run("NotTriggered", func(t *testing.T) {
		out := FormatDetection(otp.Result{}, otp.PolicyDigits)
		assert.Contains(t, out, "no trigger keyword found")
	})

	t.Run("Found", func(t *testing.T) {
		res := otp.Detect("verification code 12ab34 or 998877", []string{"verification"}, otp.PolicyDigits)
		out := FormatDetection(res, otp.PolicyDigits)
		assert.Contains(t, out, "verification")
		assert.Contains(t, out, "12ab34 (4 digits)")
		assert.Contains(t, out, "998877 (6 digits)")
		assert.Contains(t, out, "digits")
		assert.Contains(t, out, "998877")
	})

	t.Run("TriggeredNoCandidates", func(t *testing.T) {
		res := otp.Detect("your verification is pending", []string{"verification"}, otp.PolicyDigits)
		out := FormatDetection(res, otp.PolicyDigits)
		assert.Contains(t, out, "(none)")
	})
}
