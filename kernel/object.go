package kernel

import (
	"code.hybscloud.com/atomix"
	"go.uber.org/zap"

	"github.com/wippyai/magenta-go/sys"
)

var koidCounter atomix.Uint64

func nextKoid() sys.Koid {
	return sys.Koid(koidCounter.Add(1))
}

// object is a kernel object reachable through handles. All methods run
// with the kernel lock held.
type object interface {
	base() *objectBase
	// state reports the current signal snapshot.
	state() sys.SignalsState
	// userSettable reports which signals ObjectSignal may change.
	userSettable() sys.Signals
	// destroy runs once, after the last handle and the last in-flight
	// reference are gone.
	destroy(k *Kernel)
}

// objectBase carries the bookkeeping shared by every object.
type objectBase struct {
	koid      sys.Koid
	typ       ObjectType
	user      sys.Signals
	handles   int
	inflight  int
	destroyed bool
}

func newBase(typ ObjectType) objectBase {
	return objectBase{koid: nextKoid(), typ: typ}
}

func (b *objectBase) base() *objectBase { return b }

// peered is implemented by objects with a peer endpoint.
type peered interface {
	object
	peerObject() object
	peerSettable() sys.Signals
}

// maybeDestroy destroys obj once no handle or message references it.
func (k *Kernel) maybeDestroy(obj object) {
	b := obj.base()
	if b.destroyed || b.handles > 0 || b.inflight > 0 {
		return
	}
	b.destroyed = true
	obj.destroy(k)
	k.emit(Event{Koid: b.koid, Object: b.typ, Type: EventDestroyed})
	Logger().Debug("object destroyed",
		zap.Uint64("koid", uint64(b.koid)),
		zap.Stringer("type", b.typ))
}
