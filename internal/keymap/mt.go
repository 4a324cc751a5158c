package keymap

import (
	"time"

	"github.com/fibsussy/keymux/internal/keycode"
)

// Hand is the QWERTY-default hand assignment of a keycode, used by
// same-hand-roll and opposite-hand-chord detection (spec §4.3).
type Hand int

const (
	HandUnknown Hand = iota
	HandLeft
	HandRight
)

type mtKeyState int

const (
	mtUndecided mtKeyState = iota
	mtHold
	mtUnwrapped
)

// mtKey is the per-physical-key tracking record (spec §3 "MT key
// record").
type mtKey struct {
	physical       keycode.Keycode
	tap            keycode.Keycode
	hold           keycode.Keycode
	pressedAt      time.Time
	state          mtKeyState
	holdIntentScore float32
	hand           Hand
}

func (k *mtKey) durationMS() uint32 {
	return uint32(time.Since(k.pressedAt).Milliseconds())
}

// RollingStats is the per-keycode adaptive-timing record (spec §3).
// Invariant: 50 <= AdaptiveThreshold <= 500.
type RollingStats struct {
	AvgTapDuration    float32 `json:"avg_tap_duration"`
	TapSampleCount    uint32  `json:"tap_sample_count"`
	AdaptiveThreshold float32 `json:"adaptive_threshold"`
}

// NewRollingStats returns a fresh record seeded at baseThreshold.
func NewRollingStats(baseThreshold float32) RollingStats {
	return RollingStats{AdaptiveThreshold: baseThreshold}
}

const adaptiveAlpha = 0.02

// UpdateTap folds a new tap duration sample into the rolling average
// and re-centers the adaptive threshold targetMarginMs above it,
// exactly as spec §4.3 "Tap-statistics update" describes.
func (s *RollingStats) UpdateTap(durationMS, targetMarginMS float32) {
	if s.TapSampleCount == 0 {
		s.AvgTapDuration = durationMS
	} else {
		s.AvgTapDuration = adaptiveAlpha*durationMS + (1-adaptiveAlpha)*s.AvgTapDuration
	}
	s.TapSampleCount++

	targetThreshold := s.AvgTapDuration + targetMarginMS
	s.AdaptiveThreshold = adaptiveAlpha*targetThreshold + (1-adaptiveAlpha)*s.AdaptiveThreshold
	if s.AdaptiveThreshold < 50 {
		s.AdaptiveThreshold = 50
	}
	if s.AdaptiveThreshold > 500 {
		s.AdaptiveThreshold = 500
	}
}

// MtConfig is the complete enumeration of MT tuning options (spec
// §4.3).
type MtConfig struct {
	TappingTermMS               uint32
	PermissiveHold               bool
	SameHandRollDetection        bool
	OppositeHandChordDetection   bool
	MultiModDetection            bool
	MultiModThreshold            int
	AdaptiveTiming               bool
	PredictiveScoring            bool
	RollDetectionWindowMS        uint32
	ChordDetectionWindowMS       uint32
	DoubleTapThenHold            bool
	DoubleTapWindowMS            uint32
	CrossHandUnwrap              bool
	AdaptiveTargetMarginMS       uint32
	HoldDoNothingEmitsTap        bool
}

// DefaultMtConfig mirrors the original daemon's defaults.
func DefaultMtConfig() MtConfig {
	return MtConfig{
		TappingTermMS:             200,
		PermissiveHold:            true,
		SameHandRollDetection:     true,
		OppositeHandChordDetection: true,
		MultiModDetection:         true,
		MultiModThreshold:         2,
		AdaptiveTiming:            false,
		PredictiveScoring:         false,
		RollDetectionWindowMS:     150,
		ChordDetectionWindowMS:    50,
		DoubleTapThenHold:         false,
		DoubleTapWindowMS:         300,
		CrossHandUnwrap:           true,
		AdaptiveTargetMarginMS:    30,
		HoldDoNothingEmitsTap:     true,
	}
}

type mtActionKind int

const (
	mtTapPress mtActionKind = iota
	mtTapPressRelease
	mtHoldPress
	mtHoldPressRelease
	mtReleaseHold
)

// MtResolution is the outcome of resolving one MT key.
type MtResolution struct {
	Physical keycode.Keycode
	kind     mtActionKind
	key      keycode.Keycode
}

// Events expands a resolution into its press/release output events.
func (r MtResolution) Events() []Event {
	switch r.kind {
	case mtTapPress, mtHoldPress:
		return []Event{{r.key, true}}
	case mtTapPressRelease, mtHoldPressRelease:
		return []Event{{r.key, true}, {r.key, false}}
	case mtReleaseHold:
		return []Event{{r.key, false}}
	}
	return nil
}

type pressRecord struct {
	key keycode.Keycode
	at  time.Time
}

// MtProcessor resolves tap/hold dual-role keys (spec §4.3). It is the
// heart of the engine: every undecided key is evaluated against
// same-hand-roll, opposite-hand-chord, permissive-hold, multi-mod and
// cross-hand-unwrap rules as other keys are pressed around it.
type MtProcessor struct {
	config MtConfig

	undecided map[keycode.Keycode]*mtKey
	held      map[keycode.Keycode]*mtKey

	rollingStats map[keycode.Keycode]*RollingStats
	handMap      map[keycode.Keycode]Hand

	recentPresses []pressRecord
	maxHistory    int

	lastTapTime   map[keycode.Keycode]time.Time
	holdingTapKey map[keycode.Keycode]keycode.Keycode

	gameModeActive bool
}

// NewMtProcessor builds a processor with the default QWERTY hand map.
func NewMtProcessor(cfg MtConfig) *MtProcessor {
	return &MtProcessor{
		config:        cfg,
		undecided:     make(map[keycode.Keycode]*mtKey),
		held:          make(map[keycode.Keycode]*mtKey),
		rollingStats:  make(map[keycode.Keycode]*RollingStats),
		handMap:       buildDefaultHandMap(),
		maxHistory:    10,
		lastTapTime:   make(map[keycode.Keycode]time.Time),
		holdingTapKey: make(map[keycode.Keycode]keycode.Keycode),
	}
}

var leftHandKeys = []keycode.Keycode{
	keycode.KC_Q, keycode.KC_W, keycode.KC_E, keycode.KC_R, keycode.KC_T,
	keycode.KC_A, keycode.KC_S, keycode.KC_D, keycode.KC_F, keycode.KC_G,
	keycode.KC_Z, keycode.KC_X, keycode.KC_C, keycode.KC_V, keycode.KC_B,
	keycode.KC_GRV, keycode.KC_MINS, keycode.KC_EQL, keycode.KC_LBRC, keycode.KC_RBRC,
	keycode.KC_BSLS, keycode.KC_QUOT,
	keycode.KC_LCTL, keycode.KC_LSFT, keycode.KC_LALT, keycode.KC_LGUI,
	keycode.KC_1, keycode.KC_2, keycode.KC_3, keycode.KC_4, keycode.KC_5,
}

var rightHandKeys = []keycode.Keycode{
	keycode.KC_Y, keycode.KC_U, keycode.KC_I, keycode.KC_O, keycode.KC_P,
	keycode.KC_H, keycode.KC_J, keycode.KC_K, keycode.KC_L, keycode.KC_SCLN,
	keycode.KC_N, keycode.KC_M, keycode.KC_COMM, keycode.KC_DOT, keycode.KC_SLSH,
	keycode.KC_RCTL, keycode.KC_RSFT, keycode.KC_RALT, keycode.KC_RGUI,
	keycode.KC_6, keycode.KC_7, keycode.KC_8, keycode.KC_9, keycode.KC_0,
}

func buildDefaultHandMap() map[keycode.Keycode]Hand {
	m := make(map[keycode.Keycode]Hand, len(leftHandKeys)+len(rightHandKeys))
	for _, k := range leftHandKeys {
		m[k] = HandLeft
	}
	for _, k := range rightHandKeys {
		m[k] = HandRight
	}
	return m
}

// GetHand returns the configured hand for k, or HandUnknown.
func (p *MtProcessor) GetHand(k keycode.Keycode) Hand {
	if h, ok := p.handMap[k]; ok {
		return h
	}
	return HandUnknown
}

// SetHand overrides the hand map entry for k (custom layouts).
func (p *MtProcessor) SetHand(k keycode.Keycode, h Hand) {
	p.handMap[k] = h
}

// SetGameMode pauses adaptive-timing learning while active (spec
// invariant 7: no tap sample may carry a timestamp at or after
// game-mode activation).
func (p *MtProcessor) SetGameMode(active bool) {
	p.gameModeActive = active
}

// OnPress handles transitions on press of MT key k (spec §4.3
// "Transitions on press"). ok is false when the press was simply
// recorded as undecided (no immediate resolution).
func (p *MtProcessor) OnPress(k, tap, hold keycode.Keycode) (MtResolution, bool) {
	if p.config.DoubleTapThenHold {
		if last, ok := p.lastTapTime[k]; ok {
			if uint32(time.Since(last).Milliseconds()) < p.config.DoubleTapWindowMS {
				p.holdingTapKey[k] = tap
				return MtResolution{Physical: k, kind: mtHoldPress, key: tap}, true
			}
		}
	}

	hand := p.GetHand(k)
	mk := &mtKey{physical: k, tap: tap, hold: hold, pressedAt: time.Now(), state: mtUndecided, hand: hand}

	if p.config.CrossHandUnwrap && hand != HandUnknown {
		hasOpposite := false
		for _, hk := range p.held {
			if hk.hand != HandUnknown && hk.hand != hand {
				hasOpposite = true
				break
			}
		}
		if hasOpposite {
			mk.state = mtUnwrapped
			p.held[k] = mk
			return MtResolution{Physical: k, kind: mtTapPress, key: tap}, true
		}
	}

	if p.config.PredictiveScoring {
		mk.holdIntentScore = p.calculateHoldIntent(mk)
	}

	p.recentPresses = append(p.recentPresses, pressRecord{k, time.Now()})
	if len(p.recentPresses) > p.maxHistory {
		p.recentPresses = p.recentPresses[1:]
	}

	p.undecided[k] = mk
	return MtResolution{}, false
}

// OnOtherKeyPress handles spec §4.3 "Transitions on any other key
// press": same-hand-roll, opposite-hand-chord, permissive-hold, then
// multi-mod promotion across whichever undecided keys remain.
func (p *MtProcessor) OnOtherKeyPress(other keycode.Keycode) []MtResolution {
	var resolutions []MtResolution
	if !p.config.PermissiveHold && !p.config.SameHandRollDetection && !p.config.OppositeHandChordDetection {
		return resolutions
	}

	otherHand := p.GetHand(other)
	now := time.Now()

	pending := make([]keycode.Keycode, 0, len(p.undecided))
	for k := range p.undecided {
		pending = append(pending, k)
	}

	for _, k := range pending {
		mk, ok := p.undecided[k]
		if !ok {
			continue
		}
		sincePress := uint32(now.Sub(mk.pressedAt).Milliseconds())

		if p.config.SameHandRollDetection && mk.hand != HandUnknown && mk.hand == otherHand &&
			sincePress < p.config.RollDetectionWindowMS {
			if r, ok := p.resolveToTap(k); ok {
				resolutions = append(resolutions, r)
			}
			continue
		}

		if p.config.OppositeHandChordDetection && mk.hand != HandUnknown && otherHand != HandUnknown &&
			mk.hand != otherHand && sincePress < p.config.ChordDetectionWindowMS {
			if r, ok := p.resolveToHold(k); ok {
				resolutions = append(resolutions, r)
			}
			continue
		}

		if p.config.PermissiveHold {
			if r, ok := p.resolveToHold(k); ok {
				resolutions = append(resolutions, r)
			}
		}
	}

	if p.config.MultiModDetection {
		resolutions = append(resolutions, p.detectMultiMod()...)
	}

	return resolutions
}

// OnRelease handles spec §4.3 "Transitions on release".
func (p *MtProcessor) OnRelease(k keycode.Keycode) (MtResolution, bool) {
	if tap, ok := p.holdingTapKey[k]; ok {
		delete(p.holdingTapKey, k)
		return MtResolution{Physical: k, kind: mtReleaseHold, key: tap}, true
	}

	if mk, ok := p.undecided[k]; ok {
		delete(p.undecided, k)
		durationMS := mk.durationMS()

		threshold := p.config.TappingTermMS
		if p.config.AdaptiveTiming {
			threshold = p.getAdaptiveThreshold(k)
		}

		shouldHold := durationMS >= threshold
		if p.config.PredictiveScoring {
			shouldHold = mk.holdIntentScore > 0.5 || durationMS >= threshold
		}

		isHoldTiming := durationMS >= threshold
		emitTapOnHoldTimeout := isHoldTiming && p.config.HoldDoNothingEmitsTap && mk.holdIntentScore <= 0.5

		if emitTapOnHoldTimeout {
			p.recordTap(k, mk, float32(durationMS))
			return MtResolution{Physical: k, kind: mtTapPressRelease, key: mk.tap}, true
		}
		if shouldHold {
			return MtResolution{Physical: k, kind: mtHoldPressRelease, key: mk.hold}, true
		}
		p.recordTap(k, mk, float32(durationMS))
		return MtResolution{Physical: k, kind: mtTapPressRelease, key: mk.tap}, true
	}

	if mk, ok := p.held[k]; ok {
		delete(p.held, k)
		if mk.state == mtUnwrapped {
			return MtResolution{Physical: k, kind: mtReleaseHold, key: mk.tap}, true
		}
		return MtResolution{Physical: k, kind: mtReleaseHold, key: mk.hold}, true
	}

	return MtResolution{}, false
}

func (p *MtProcessor) recordTap(k keycode.Keycode, mk *mtKey, durationMS float32) {
	if p.config.DoubleTapThenHold {
		p.lastTapTime[k] = time.Now()
	}
	if p.config.AdaptiveTiming && !p.gameModeActive {
		p.updateTapStats(k, durationMS)
	}
}

func (p *MtProcessor) resolveToTap(k keycode.Keycode) (MtResolution, bool) {
	mk, ok := p.undecided[k]
	if !ok {
		return MtResolution{}, false
	}
	delete(p.undecided, k)
	return MtResolution{Physical: k, kind: mtTapPress, key: mk.tap}, true
}

func (p *MtProcessor) resolveToHold(k keycode.Keycode) (MtResolution, bool) {
	mk, ok := p.undecided[k]
	if !ok {
		return MtResolution{}, false
	}
	delete(p.undecided, k)
	mk.state = mtHold
	p.held[k] = mk
	return MtResolution{Physical: k, kind: mtHoldPress, key: mk.hold}, true
}

func (p *MtProcessor) detectMultiMod() []MtResolution {
	var resolutions []MtResolution
	var left, right []keycode.Keycode
	for k, mk := range p.undecided {
		switch mk.hand {
		case HandLeft:
			left = append(left, k)
		case HandRight:
			right = append(right, k)
		}
	}
	if len(left) >= p.config.MultiModThreshold {
		for _, k := range left {
			if r, ok := p.resolveToHold(k); ok {
				resolutions = append(resolutions, r)
			}
		}
	}
	if len(right) >= p.config.MultiModThreshold {
		for _, k := range right {
			if r, ok := p.resolveToHold(k); ok {
				resolutions = append(resolutions, r)
			}
		}
	}
	return resolutions
}

func (p *MtProcessor) calculateHoldIntent(mk *mtKey) float32 {
	var score float32
	if len(p.undecided) > 0 {
		score += 0.3
	}
	now := time.Now()
	recentSameHand := 0
	for _, pr := range p.recentPresses {
		if p.GetHand(pr.key) == mk.hand && now.Sub(pr.at).Milliseconds() < 200 {
			recentSameHand++
		}
	}
	if recentSameHand > 1 {
		score -= 0.2
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (p *MtProcessor) getAdaptiveThreshold(k keycode.Keycode) uint32 {
	if s, ok := p.rollingStats[k]; ok && s.TapSampleCount >= 1 {
		return uint32(s.AdaptiveThreshold)
	}
	return p.config.TappingTermMS
}

func (p *MtProcessor) updateTapStats(k keycode.Keycode, durationMS float32) {
	baseThreshold := float32(p.config.TappingTermMS)
	targetMargin := float32(p.config.AdaptiveTargetMarginMS)

	s, ok := p.rollingStats[k]
	if !ok {
		v := NewRollingStats(baseThreshold)
		s = &v
		p.rollingStats[k] = s
	}
	s.UpdateTap(durationMS, targetMargin)
}

// HandlePress is the entry point used by the keymap processor for a
// physical press mapped to MT(tap, hold): it first lets pending MT
// keys observe the tap output as an "other key press", then resolves
// this press itself.
func (p *MtProcessor) HandlePress(k, tap, hold keycode.Keycode) []Event {
	otherResolutions := p.OnOtherKeyPress(tap)
	events := eventsFromResolutions(otherResolutions)

	if r, ok := p.OnPress(k, tap, hold); ok {
		events = append(events, r.Events()...)
	}
	return events
}

// HandleRelease is the entry point for releasing a physical key that
// was dispatched through HandlePress.
func (p *MtProcessor) HandleRelease(k keycode.Keycode) (MtResolution, bool) {
	return p.OnRelease(k)
}

// OnOtherKeyPressForResolutions lets a plain (non-MT) key press notify
// pending MT keys, per spec §4.7 step on a plain Key() press.
func (p *MtProcessor) OnOtherKeyPressForResolutions(other keycode.Keycode) []MtResolution {
	return p.OnOtherKeyPress(other)
}

func eventsFromResolutions(resolutions []MtResolution) []Event {
	var events []Event
	for _, r := range resolutions {
		events = append(events, r.Events()...)
	}
	return events
}
