package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Sachin7013/vision-connect/internal/adapter/driven/persistence/memory"
	"github.com/Sachin7013/vision-connect/internal/core/domain"
	"github.com/Sachin7013/vision-connect/internal/core/port"
	"github.com/Sachin7013/vision-connect/internal/core/service"
)

type fakeConn struct {
	id string

	mu       sync.Mutex
	received [][]byte
	frames   []int
	closed   bool
	sendErr  error
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(frameType int, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	c.received = append(c.received, cp)
	c.frames = append(c.frames, frameType)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.received))
	for i, m := range c.received {
		out[i] = string(m)
	}
	return out
}

func (c *fakeConn) frameTypes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// relayFixture returns a relay plus an already-activated device id.
func relayFixture(t *testing.T) (*service.RelayService, *memory.DeviceRepository, domain.DeviceID) {
	t.Helper()
	repo := memory.NewDeviceRepository()
	id := activatedDevice(t, repo)
	return service.NewRelayService(repo), repo, id
}

func activatedDevice(t *testing.T, repo *memory.DeviceRepository) domain.DeviceID {
	t.Helper()
	provision := service.NewProvisionService(repo, testServerURL)
	issued, _, err := provision.Onboard(context.Background(), domain.NewOwnerID(), onboardParams())
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if _, err := provision.Activate(context.Background(), issued.Token, "CAM-1", "", "10.0.0.2"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return issued.ID
}

func TestRegisterRejectsUnknownAndPendingDevices(t *testing.T) {
	repo := memory.NewDeviceRepository()
	relay := service.NewRelayService(repo)

	if err := relay.Register(context.Background(), domain.NewDeviceID(), port.RoleCamera, newFakeConn("c")); !errors.Is(err, domain.ErrUnknownDevice) {
		t.Fatalf("unknown id: expected ErrUnknownDevice, got %v", err)
	}

	provision := service.NewProvisionService(repo, testServerURL)
	issued, _, _ := provision.Onboard(context.Background(), domain.NewOwnerID(), onboardParams())
	// Still pending: an unclaimed token must not open a relay channel.
	if err := relay.Register(context.Background(), issued.ID, port.RoleViewer, newFakeConn("v")); !errors.Is(err, domain.ErrUnknownDevice) {
		t.Fatalf("pending device: expected ErrUnknownDevice, got %v", err)
	}
}

func TestCameraFanOutToViewersInOrder(t *testing.T) {
	relay, _, deviceID := relayFixture(t)

	camera := newFakeConn("camera")
	v1 := newFakeConn("viewer-1")
	v2 := newFakeConn("viewer-2")
	for _, reg := range []struct {
		role port.Role
		conn *fakeConn
	}{{port.RoleCamera, camera}, {port.RoleViewer, v1}, {port.RoleViewer, v2}} {
		if err := relay.Register(context.Background(), deviceID, reg.role, reg.conn); err != nil {
			t.Fatalf("register %s: %v", reg.conn.id, err)
		}
	}

	for i := 0; i < 5; i++ {
		relay.Send(deviceID, port.RoleCamera, port.FrameText, []byte(fmt.Sprintf("frame-%d", i)))
	}

	for _, v := range []*fakeConn{v1, v2} {
		got := v.messages()
		if len(got) != 5 {
			t.Fatalf("%s: expected 5 messages exactly once, got %d", v.id, len(got))
		}
		for i, m := range got {
			if want := fmt.Sprintf("frame-%d", i); m != want {
				t.Fatalf("%s: message %d out of order: got %q want %q", v.id, i, m, want)
			}
		}
	}
	if len(camera.messages()) != 0 {
		t.Fatal("camera must not receive its own traffic")
	}
}

func TestViewerSendsReachOnlyTheCamera(t *testing.T) {
	relay, _, deviceID := relayFixture(t)

	camera := newFakeConn("camera")
	v1 := newFakeConn("viewer-1")
	v2 := newFakeConn("viewer-2")
	_ = relay.Register(context.Background(), deviceID, port.RoleCamera, camera)
	_ = relay.Register(context.Background(), deviceID, port.RoleViewer, v1)
	_ = relay.Register(context.Background(), deviceID, port.RoleViewer, v2)

	relay.Send(deviceID, port.RoleViewer, port.FrameText, []byte("pan-left"))

	if got := camera.messages(); len(got) != 1 || got[0] != "pan-left" {
		t.Fatalf("camera: got %v", got)
	}
	if len(v1.messages()) != 0 || len(v2.messages()) != 0 {
		t.Fatal("viewer traffic must not reach other viewers")
	}
}

func TestRelayIsolationBetweenDevices(t *testing.T) {
	repo := memory.NewDeviceRepository()
	relay := service.NewRelayService(repo)
	d1 := activatedDevice(t, repo)
	d2 := activatedDevice(t, repo)

	cam1 := newFakeConn("cam-1")
	view1 := newFakeConn("view-1")
	view2 := newFakeConn("view-2")
	_ = relay.Register(context.Background(), d1, port.RoleCamera, cam1)
	_ = relay.Register(context.Background(), d1, port.RoleViewer, view1)
	_ = relay.Register(context.Background(), d2, port.RoleViewer, view2)

	relay.Send(d1, port.RoleCamera, port.FrameText, []byte("d1-frame"))

	if got := view1.messages(); len(got) != 1 || got[0] != "d1-frame" {
		t.Fatalf("d1 viewer: got %v", got)
	}
	if len(view2.messages()) != 0 {
		t.Fatal("d1 traffic leaked onto d2's channel")
	}
}

func TestSendWithNoCounterpartDropsSilently(t *testing.T) {
	relay, _, deviceID := relayFixture(t)

	camera := newFakeConn("camera")
	_ = relay.Register(context.Background(), deviceID, port.RoleCamera, camera)

	// No viewers registered: nothing buffered, nothing errors.
	relay.Send(deviceID, port.RoleCamera, port.FrameText, []byte("frame"))
	// Unknown device: still a no-op.
	relay.Send(domain.NewDeviceID(), port.RoleViewer, port.FrameText, []byte("frame"))

	viewer := newFakeConn("late-viewer")
	_ = relay.Register(context.Background(), deviceID, port.RoleViewer, viewer)
	if len(viewer.messages()) != 0 {
		t.Fatal("late viewer must not receive earlier traffic (no store-and-forward)")
	}
}

func TestCameraReplacementClosesPredecessor(t *testing.T) {
	relay, _, deviceID := relayFixture(t)

	first := newFakeConn("camera-1")
	second := newFakeConn("camera-2")
	viewer := newFakeConn("viewer")
	_ = relay.Register(context.Background(), deviceID, port.RoleCamera, first)
	_ = relay.Register(context.Background(), deviceID, port.RoleViewer, viewer)

	if err := relay.Register(context.Background(), deviceID, port.RoleCamera, second); err != nil {
		t.Fatalf("replacement register: %v", err)
	}
	if !first.isClosed() {
		t.Fatal("first camera connection must be closed on replacement")
	}

	relay.Send(deviceID, port.RoleViewer, port.FrameText, []byte("hello"))
	if len(first.messages()) != 0 {
		t.Fatal("replaced camera must not receive traffic")
	}
	if got := viewer.messages(); len(got) != 0 {
		t.Fatalf("viewer got unexpected traffic %v", got)
	}
	if got := second.messages(); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("second camera: got %v", got)
	}

	// The replaced connection's own unregister (driven by its read pump dying)
	// must not evict the new camera.
	relay.Unregister(deviceID, port.RoleCamera, first)
	relay.Send(deviceID, port.RoleViewer, port.FrameText, []byte("again"))
	if got := second.messages(); len(got) != 2 {
		t.Fatalf("second camera lost its slot: %v", got)
	}
}

func TestPresenceToggling(t *testing.T) {
	relay, repo, deviceID := relayFixture(t)

	status := func() domain.DeviceStatus {
		t.Helper()
		device, err := repo.GetByID(context.Background(), deviceID)
		if err != nil {
			t.Fatalf("get device: %v", err)
		}
		return device.Status
	}

	camera := newFakeConn("camera")
	_ = relay.Register(context.Background(), deviceID, port.RoleCamera, camera)
	if got := status(); got != domain.StatusActive {
		t.Fatalf("after register: expected active, got %s", got)
	}

	relay.Unregister(deviceID, port.RoleCamera, camera)
	if got := status(); got != domain.StatusOffline {
		t.Fatalf("after unregister: expected offline, got %s", got)
	}

	// Reconnect flips it back; the record never returns to pending.
	camera2 := newFakeConn("camera-2")
	if err := relay.Register(context.Background(), deviceID, port.RoleCamera, camera2); err != nil {
		t.Fatalf("offline devices must still be registrable: %v", err)
	}
	if got := status(); got != domain.StatusActive {
		t.Fatalf("after reconnect: expected active, got %s", got)
	}
}

func TestViewerChurnDoesNotTouchPresence(t *testing.T) {
	relay, repo, deviceID := relayFixture(t)

	viewer := newFakeConn("viewer")
	_ = relay.Register(context.Background(), deviceID, port.RoleViewer, viewer)
	relay.Unregister(deviceID, port.RoleViewer, viewer)

	device, _ := repo.GetByID(context.Background(), deviceID)
	if device.Status != domain.StatusActive {
		t.Fatalf("viewer churn changed status to %s", device.Status)
	}
}

func TestUnregisterUnknownIsNoOp(t *testing.T) {
	relay, _, deviceID := relayFixture(t)
	// Neither of these may panic or error.
	relay.Unregister(deviceID, port.RoleCamera, newFakeConn("ghost"))
	relay.Unregister(domain.NewDeviceID(), port.RoleViewer, newFakeConn("ghost"))
}

func TestFailedWriteEvictsCounterpart(t *testing.T) {
	relay, repo, deviceID := relayFixture(t)

	camera := newFakeConn("camera")
	good := newFakeConn("good-viewer")
	bad := newFakeConn("bad-viewer")
	bad.sendErr = errors.New("connection reset")

	_ = relay.Register(context.Background(), deviceID, port.RoleCamera, camera)
	_ = relay.Register(context.Background(), deviceID, port.RoleViewer, good)
	_ = relay.Register(context.Background(), deviceID, port.RoleViewer, bad)

	relay.Send(deviceID, port.RoleCamera, port.FrameText, []byte("frame"))

	if !bad.isClosed() {
		t.Fatal("failed viewer must be closed")
	}
	if got := good.messages(); len(got) != 1 {
		t.Fatalf("healthy viewer must still be served: got %v", got)
	}

	// Camera write failure behaves like a disconnect: offline flip.
	camera.sendErr = errors.New("connection reset")
	relay.Send(deviceID, port.RoleViewer, port.FrameText, []byte("cmd"))
	device, _ := repo.GetByID(context.Background(), deviceID)
	if device.Status != domain.StatusOffline {
		t.Fatalf("expected offline after camera write failure, got %s", device.Status)
	}
}

func TestDropDeviceClosesEverything(t *testing.T) {
	relay, _, deviceID := relayFixture(t)

	camera := newFakeConn("camera")
	viewer := newFakeConn("viewer")
	_ = relay.Register(context.Background(), deviceID, port.RoleCamera, camera)
	_ = relay.Register(context.Background(), deviceID, port.RoleViewer, viewer)

	relay.DropDevice(deviceID)

	if !camera.isClosed() || !viewer.isClosed() {
		t.Fatal("drop must close every connection for the device")
	}
	relay.Send(deviceID, port.RoleViewer, port.FrameText, []byte("late"))
	if len(camera.messages()) != 0 {
		t.Fatal("dropped device must not relay")
	}
}

func TestFrameTypeSurvivesForwarding(t *testing.T) {
	relay, _, deviceID := relayFixture(t)

	camera := newFakeConn("camera")
	viewer := newFakeConn("viewer")
	_ = relay.Register(context.Background(), deviceID, port.RoleCamera, camera)
	_ = relay.Register(context.Background(), deviceID, port.RoleViewer, viewer)

	// Binary payloads are not valid UTF-8; re-framing them as text would make
	// strict receivers fail the connection.
	relay.Send(deviceID, port.RoleCamera, port.FrameBinary, []byte{0x00, 0x01, 0xff, 0xfe})
	relay.Send(deviceID, port.RoleCamera, port.FrameText, []byte(`{"sdp":"offer"}`))

	types := viewer.frameTypes()
	if len(types) != 2 || types[0] != port.FrameBinary || types[1] != port.FrameText {
		t.Fatalf("frame types mangled in transit: %v", types)
	}
	if got := viewer.messages(); got[0] != "\x00\x01\xff\xfe" {
		t.Fatalf("binary payload mangled: %q", got[0])
	}

	relay.Send(deviceID, port.RoleViewer, port.FrameBinary, []byte{0x7f})
	if types := camera.frameTypes(); len(types) != 1 || types[0] != port.FrameBinary {
		t.Fatalf("viewer-to-camera frame type mangled: %v", types)
	}
}

func TestRegisterRacesEntryCleanup(t *testing.T) {
	relay, repo, deviceID := relayFixture(t)

	// Unregistering the last connection deletes the device's table entry; a
	// register landing in that window must still end up reachable.
	for i := 0; i < 500; i++ {
		viewer := newFakeConn("viewer")
		if err := relay.Register(context.Background(), deviceID, port.RoleViewer, viewer); err != nil {
			t.Fatalf("iteration %d: register viewer: %v", i, err)
		}
		camera := newFakeConn(fmt.Sprintf("camera-%d", i))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			relay.Unregister(deviceID, port.RoleViewer, viewer)
		}()
		go func() {
			defer wg.Done()
			if err := relay.Register(context.Background(), deviceID, port.RoleCamera, camera); err != nil {
				t.Errorf("iteration %d: register camera: %v", i, err)
			}
		}()
		wg.Wait()

		relay.Send(deviceID, port.RoleViewer, port.FrameText, []byte("ping"))
		if len(camera.messages()) != 1 {
			t.Fatalf("iteration %d: camera admitted but unreachable", i)
		}
		relay.Unregister(deviceID, port.RoleCamera, camera)
	}

	// The final unregister must have been visible: presence ends offline.
	device, err := repo.GetByID(context.Background(), deviceID)
	if err != nil || device.Status != domain.StatusOffline {
		t.Fatalf("expected offline after last unregister, got %v %v", device.Status, err)
	}
}

func TestConcurrentRelayTraffic(t *testing.T) {
	repo := memory.NewDeviceRepository()
	relay := service.NewRelayService(repo)

	const devices = 4
	const messages = 50

	var wg sync.WaitGroup
	for d := 0; d < devices; d++ {
		id := activatedDevice(t, repo)
		camera := newFakeConn(fmt.Sprintf("cam-%d", d))
		viewer := newFakeConn(fmt.Sprintf("view-%d", d))
		if err := relay.Register(context.Background(), id, port.RoleCamera, camera); err != nil {
			t.Fatalf("register camera %d: %v", d, err)
		}
		if err := relay.Register(context.Background(), id, port.RoleViewer, viewer); err != nil {
			t.Fatalf("register viewer %d: %v", d, err)
		}

		wg.Add(1)
		go func(id domain.DeviceID, viewer *fakeConn, tag int) {
			defer wg.Done()
			for i := 0; i < messages; i++ {
				relay.Send(id, port.RoleCamera, port.FrameText, []byte(fmt.Sprintf("%d:%d", tag, i)))
			}
			got := viewer.messages()
			if len(got) != messages {
				t.Errorf("device %d: got %d messages, want %d", tag, len(got), messages)
				return
			}
			for i, m := range got {
				if want := fmt.Sprintf("%d:%d", tag, i); m != want {
					t.Errorf("device %d: message %d = %q, want %q", tag, i, m, want)
					return
				}
			}
		}(id, viewer, d)
	}
	wg.Wait()
}
