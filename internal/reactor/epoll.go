package reactor

import "golang.org/x/sys/unix"

// TriggerMode selects level-triggered or edge-triggered epoll semantics
// for either the listening socket or client connections.
type TriggerMode int

const (
	LevelTriggered TriggerMode = iota
	EdgeTriggered
)

func eventsFor(mode TriggerMode, base uint32, oneshot bool) uint32 {
	ev := base | unix.EPOLLRDHUP
	if mode == EdgeTriggered {
		ev |= unix.EPOLLET
	}
	if oneshot {
		ev |= unix.EPOLLONESHOT
	}
	return ev
}

// addfd registers fd with epfd for the given base event set (typically
// EPOLLIN), honoring trigger mode and one-shot re-arm.
func addfd(epfd, fd int, mode TriggerMode, oneshot bool, base uint32) error {
	ev := unix.EpollEvent{Fd: int32(fd), Events: eventsFor(mode, base, oneshot)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return err
	}
	return unix.SetNonblock(fd, true)
}

// modfd rearms fd for a (possibly different) event set, required after
// every EPOLLONESHOT-triggered wakeup.
func modfd(epfd, fd int, mode TriggerMode, base uint32) error {
	ev := unix.EpollEvent{Fd: int32(fd), Events: eventsFor(mode, base, true)}
	return unix.EpollCtl(epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// removefd drops fd from epfd's interest set and closes it.
func removefd(epfd, fd int) error {
	_ = unix.EpollCtl(epfd, unix.EPOLL_CTL_DEL, fd, nil)
	return unix.Close(fd)
}
