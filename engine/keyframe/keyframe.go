package keyframe

import (
	"fmt"
	"math"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Sample is the result of locating a point in time within a fixed-rate frame sequence.
type Sample struct {
	// Current is the frame being blended from.
	Current int

	// Next is the frame being blended toward.
	Next int

	// Blend is the fraction of Next in the blended result, in [0, 1).
	Blend float32
}

// Interpolate locates elapsedSeconds within a sequence of frameCount frames of frameLengthMs each.
// The sequence repeats, but there is no blend across the wrap: the last frame blends toward itself.
// In reverse, the frame index is mirrored from the end and the next frame is the one before it.
// Reverse playback shows the last frame twice per cycle and never shows frame 0 as the current frame.
//
// Parameters:
//   - elapsedSeconds: time since the sequence started
//   - frameLengthMs: length of a single frame in milliseconds
//   - frameCount: number of frames in the sequence
//   - reverse: play the sequence backwards
//
// Returns:
//   - Sample: the current frame, next frame and blend factor
//   - error: ErrInvalidArgument if frameCount or frameLengthMs is not positive
func Interpolate(elapsedSeconds, frameLengthMs float32, frameCount int, reverse bool) (Sample, error) {
	if err := validate(frameLengthMs, frameCount); err != nil {
		return Sample{}, err
	}

	elapsedFrames := float64(elapsedSeconds) * 1000 / float64(frameLengthMs)
	whole := math.Floor(elapsedFrames)
	s := Sample{
		Current: wrap(int(whole), frameCount),
		Blend:   float32(elapsedFrames - whole),
	}

	if reverse {
		s.Current = mirror(s.Current, frameCount)
		s.Next = max(s.Current-1, 0)
		return s, nil
	}
	s.Next = min(s.Current+1, frameCount-1)
	return s, nil
}

// FrameIndex returns the frame active at elapsedSeconds without any blending.
// It is the stepping used for morph weight sequences.
// Reverse mirrors the index the same way Interpolate does, so frame 0 is never returned.
func FrameIndex(elapsedSeconds, frameLengthMs float32, frameCount int, reverse bool) (int, error) {
	if err := validate(frameLengthMs, frameCount); err != nil {
		return 0, err
	}
	frame := wrap(int(math.Floor(float64(elapsedSeconds)*1000/float64(frameLengthMs))), frameCount)
	if reverse {
		frame = mirror(frame, frameCount)
	}
	return frame, nil
}

// Blend evaluates a sample against its frames as a component-wise matrix blend.
//
// Parameters:
//   - frames: the frame transforms the sample was computed for
//   - s: the sample
//
// Returns:
//   - mgl32.Mat4: (1-blend)*frames[current] + blend*frames[next]
//   - error: ErrInvalidArgument if the sample does not index into frames
func Blend(frames []mgl32.Mat4, s Sample) (mgl32.Mat4, error) {
	if s.Current < 0 || s.Current >= len(frames) || s.Next < 0 || s.Next >= len(frames) {
		return mgl32.Mat4{}, fmt.Errorf("frame %d/%d outside %d frames: %w", s.Current, s.Next, len(frames), common.ErrInvalidArgument)
	}
	return common.LerpMat4(frames[s.Current], frames[s.Next], s.Blend), nil
}

func validate(frameLengthMs float32, frameCount int) error {
	if frameCount <= 0 {
		return fmt.Errorf("frame count %d: %w", frameCount, common.ErrInvalidArgument)
	}
	if !(frameLengthMs > 0) {
		return fmt.Errorf("frame length %vms: %w", frameLengthMs, common.ErrInvalidArgument)
	}
	return nil
}

func wrap(frame, frameCount int) int {
	frame %= frameCount
	if frame < 0 {
		frame += frameCount
	}
	return frame
}

// mirror reflects a frame index from the end of the sequence. frameCount - 0 would fall
// one past the last frame, so it is pinned to the last frame.
func mirror(frame, frameCount int) int {
	return min(frameCount-frame, frameCount-1)
}
