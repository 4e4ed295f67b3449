package pipeline

import (
	"math"

	"github.com/burka/voicsh/internal/logger"
)

// VADConfig configures the voice-activity stage. ThresholdDB is the
// silence threshold in dBFS (e.g. -20 is more permissive than 0); it is
// converted once to a linear RMS threshold at construction, per §4.2.
type VADConfig struct {
	ThresholdDB float64
	// HysteresisMarginDB, when non-zero, raises the entering-speech
	// threshold above the leaving-speech threshold by this many dB to
	// suppress flapping on borderline frames. Both derive from
	// ThresholdDB, as §4.2 requires.
	HysteresisMarginDB float64
}

// VADStage classifies each AudioFrame as speech or silence by RMS energy,
// grounded on the teacher's calculateEnergy shape but producing a level
// normalized to [0, 1] as §3 requires for VadFrame, and driven purely by
// the configured threshold rather than package-level log.Printf calls.
type VADStage struct {
	enterThreshold float64
	leaveThreshold float64
	hysteresis     bool
	inSpeech       bool
	log            *logger.Scoped
}

// NewVADStage builds a VADStage from config.
func NewVADStage(cfg VADConfig, log *logger.Logger) *VADStage {
	leave := dbToLinear(cfg.ThresholdDB)
	enter := leave
	hysteresis := cfg.HysteresisMarginDB > 0
	if hysteresis {
		enter = dbToLinear(cfg.ThresholdDB + cfg.HysteresisMarginDB)
	}
	return &VADStage{
		enterThreshold: enter,
		leaveThreshold: leave,
		hysteresis:     hysteresis,
		log:            scopedLogger(log, "vad"),
	}
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// rms computes sqrt(mean(sample^2 / 32768^2)) over samples, which is
// already normalized to [0, 1] by construction (int16 full scale is
// ±32768).
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}

// Process implements Stage. VAD is stateless apart from the optional
// hysteresis flag and never drops or coalesces frames: every AudioFrame
// yields exactly one VadFrame.
func (v *VADStage) Process(in AudioFrame) (VadFrame, bool, *StageError) {
	level := rms(in.Samples)

	var isSpeech bool
	if !v.hysteresis {
		isSpeech = level > v.leaveThreshold
	} else if v.inSpeech {
		isSpeech = level > v.leaveThreshold
	} else {
		isSpeech = level > v.enterThreshold
	}
	v.inSpeech = isSpeech

	return VadFrame{
		Samples:   in.Samples,
		Timestamp: in.Timestamp,
		Sequence:  in.Sequence,
		IsSpeech:  isSpeech,
		Level:     level,
	}, true, nil
}

func (v *VADStage) Name() string { return "vad" }

// Shutdown emits nothing; the VAD stage holds no buffered state across
// frames beyond the hysteresis flag.
func (v *VADStage) Shutdown() (VadFrame, bool) { return VadFrame{}, false }
