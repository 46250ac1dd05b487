package preview

import rl "github.com/gen2brain/raylib-go/raylib"

var (
	// DefaultStagingOrigin is far outside any authored scene.
	DefaultStagingOrigin = rl.Vector3{X: 9999, Y: 9999, Z: -9999}
	// DefaultSlotOffset separates concurrently staged previews.
	DefaultSlotOffset = rl.Vector3{X: 100, Y: 100, Z: 0}
)

// StagingArea is where working copies are parked while they are captured.
type StagingArea struct {
	Origin     rl.Vector3
	SlotOffset rl.Vector3
}

func DefaultStagingArea() StagingArea {
	return StagingArea{Origin: DefaultStagingOrigin, SlotOffset: DefaultSlotOffset}
}

// SlotPosition is Origin + slot*SlotOffset.
func (a StagingArea) SlotPosition(slot int) rl.Vector3 {
	return rl.Vector3Add(a.Origin, rl.Vector3Scale(a.SlotOffset, float32(slot)))
}

// slotPool hands out the lowest free slot index. Its size is the in-flight
// capture count. Reusing freed low slots keeps live slots distinct even
// when captures finish out of order.
type slotPool struct {
	used map[int]struct{}
}

func newSlotPool() *slotPool {
	return &slotPool{used: make(map[int]struct{})}
}

func (p *slotPool) acquire() int {
	for i := 0; ; i++ {
		if _, taken := p.used[i]; !taken {
			p.used[i] = struct{}{}
			return i
		}
	}
}

func (p *slotPool) release(slot int) {
	delete(p.used, slot)
}

func (p *slotPool) inFlight() int {
	return len(p.used)
}

