package views

import (
	"context"

	"github.com/looplab/fsm"
)

// modal states
const (
	ModalClosed  = "closed"
	ModalLoading = "loading"
	ModalOpen    = "open"
)

// modal events
const (
	eventOpen    = "open"
	eventLoaded  = "loaded"
	eventRefresh = "refresh"
	eventClose   = "close"
)

// newEditModal returns the state machine of a modal holding a draft copy of a record:
// closed -> open -> closed.
func newEditModal(onClose func()) *fsm.FSM {
	return fsm.NewFSM(
		ModalClosed,
		fsm.Events{
			{Name: eventOpen, Src: []string{ModalClosed}, Dst: ModalOpen},
			{Name: eventClose, Src: []string{ModalOpen}, Dst: ModalClosed},
		},
		fsm.Callbacks{
			"enter_" + ModalClosed: func(_ context.Context, _ *fsm.Event) { onClose() },
		},
	)
}

// newLoadingModal returns the state machine of a modal whose content is fetched on open:
// closed -> loading -> open (-> loading on refresh) -> closed.
func newLoadingModal(onClose func()) *fsm.FSM {
	return fsm.NewFSM(
		ModalClosed,
		fsm.Events{
			{Name: eventOpen, Src: []string{ModalClosed}, Dst: ModalLoading},
			{Name: eventLoaded, Src: []string{ModalLoading}, Dst: ModalOpen},
			{Name: eventRefresh, Src: []string{ModalOpen}, Dst: ModalLoading},
			{Name: eventClose, Src: []string{ModalLoading, ModalOpen}, Dst: ModalClosed},
		},
		fsm.Callbacks{
			"enter_" + ModalClosed: func(_ context.Context, _ *fsm.Event) { onClose() },
		},
	)
}
