package loudness

// UIPercent maps a raw score onto a 0..100 meter fill for a visual maximum
// of uiMax. The raw score itself is never clamped here; only the meter is.
func UIPercent(raw, uiMax int) float64 {
	if uiMax <= 0 {
		return 0
	}
	p := float64(raw) / float64(uiMax) * 100
	return max(0, min(100, p))
}
