package adax

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRooms_ScalesTemperatures(t *testing.T) {
	f := newFakeAdax(t)
	client := newTestClient(f, 50*time.Millisecond)

	rooms := client.GetRooms(context.Background())
	require.Len(t, rooms, 3)

	assert.Equal(t, 1, rooms[0].ID)
	assert.Equal(t, "Living room", rooms[0].Name)
	assert.InDelta(t, 19.0, rooms[0].TargetTemperature, 0.001)
	assert.InDelta(t, 20.5, rooms[0].Temperature, 0.001)
	assert.InDelta(t, 17.25, rooms[1].Temperature, 0.001)

	homes := client.Snapshot().Homes()
	require.Len(t, homes, 1)
	assert.Equal(t, "Cabin", homes[0].Name)

	devices := client.Snapshot().Devices()
	require.Len(t, devices, 1)
	assert.Equal(t, 1, devices[0].RoomID)

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.authHeaders {
		assert.Equal(t, "Bearer token-1", h)
	}
}

func TestUpdate_WithEnergyQuery(t *testing.T) {
	f := newFakeAdax(t)
	client := New(Config{
		BaseURL:        f.server.URL,
		AccountID:      "123456",
		Password:       "secret",
		WithEnergy:     true,
		SkipEnergyLogs: true,
	}, withMinInterval(50*time.Millisecond))
	defer client.Close()

	require.True(t, client.Update(context.Background()))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []string{"withEnergy=1"}, f.contentQuery)
	assert.Empty(t, f.energyCalls, "energy logs disabled")
}

func TestUpdate_TwiceWithinInterval_OneRoundTrip(t *testing.T) {
	f := newFakeAdax(t)
	client := newTestClient(f, time.Minute)

	first := client.GetRooms(context.Background())
	second := client.GetRooms(context.Background())

	_, content, _ := f.counts()
	assert.Equal(t, 1, content)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.energyCallsFor(2))
}

func TestUpdate_ConcurrentCallersPassGateOnce(t *testing.T) {
	f := newFakeAdax(t)
	client := newTestClient(f, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	updated := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if client.Update(context.Background()) {
				mu.Lock()
				updated++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	_, content, _ := f.counts()
	assert.Equal(t, 1, updated)
	assert.Equal(t, 1, content)
}

func TestSetRoomTargetTemperature_LastEditWins(t *testing.T) {
	f := newFakeAdax(t)
	client := newTestClient(f, 50*time.Millisecond)
	require.Len(t, client.GetRooms(context.Background()), 3)

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = client.SetRoomTargetTemperature(context.Background(), 1, 21.5, true)
	}()
	time.Sleep(10 * time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[1] = client.SetRoomTargetTemperature(context.Background(), 1, 22.0, false)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	bodies := f.bodies()
	require.Len(t, bodies, 1, "exactly one control request")
	require.Len(t, bodies[0].Rooms, 1)
	sent := bodies[0].Rooms[0]
	assert.Equal(t, 1, sent.ID)
	assert.Equal(t, "2200", sent.TargetTemperature)
	require.NotNil(t, sent.HeatingEnabled)
	assert.False(t, *sent.HeatingEnabled)

	room, ok := client.Snapshot().Room(1)
	require.True(t, ok)
	assert.InDelta(t, 22.0, room.TargetTemperature, 0.001)
	assert.False(t, room.HeatingEnabled)
}

func TestSetRoom_MergesRoomsIntoOneBatch(t *testing.T) {
	f := newFakeAdax(t)
	client := newTestClient(f, 50*time.Millisecond)
	client.GetRooms(context.Background())

	var wg sync.WaitGroup
	for _, u := range []RoomUpdate{
		{ID: 1, TargetTemperature: 20},
		{ID: 2, TargetTemperature: 18.5, HeatingEnabled: boolPtr(true)},
		{ID: 1, TargetTemperature: 20.5},
	} {
		wg.Add(1)
		go func(u RoomUpdate) {
			defer wg.Done()
			assert.NoError(t, client.SetRoom(context.Background(), u))
		}(u)
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	bodies := f.bodies()
	require.Len(t, bodies, 1)
	rooms := bodies[0].Rooms
	require.Len(t, rooms, 2)
	assert.Equal(t, 2, rooms[0].ID)
	assert.Equal(t, "1850", rooms[0].TargetTemperature)
	assert.Equal(t, 1, rooms[1].ID)
	assert.Equal(t, "2050", rooms[1].TargetTemperature)
	assert.Nil(t, rooms[1].HeatingEnabled)

	living, _ := client.Snapshot().Room(1)
	assert.InDelta(t, 20.5, living.TargetTemperature, 0.001)
	assert.True(t, living.HeatingEnabled, "heating flag untouched when not sent")

	bedroom, _ := client.Snapshot().Room(2)
	assert.True(t, bedroom.HeatingEnabled)
}

func TestSetRoom_FailedWriteLeavesSnapshot(t *testing.T) {
	f := newFakeAdax(t)
	client := newTestClient(f, 20*time.Millisecond)
	client.GetRooms(context.Background())
	f.set(func(f *fakeAdax) { f.controlStatus = http.StatusInternalServerError })

	err := client.SetRoomTargetTemperature(context.Background(), 1, 25, false)
	require.Error(t, err)
	assert.True(t, IsHTTPError(err))

	_, _, control := f.counts()
	assert.Equal(t, DefaultRetries+1, control)

	room, _ := client.Snapshot().Room(1)
	assert.InDelta(t, 19.0, room.TargetTemperature, 0.001)
	assert.True(t, room.HeatingEnabled)
	assert.False(t, client.WritePending())
}

func TestSetRoom_RateLimitedInvalidatesToken(t *testing.T) {
	f := newFakeAdax(t)
	client := newTestClient(f, 20*time.Millisecond)
	client.GetRooms(context.Background())
	f.set(func(f *fakeAdax) { f.controlStatus = http.StatusTooManyRequests })

	err := client.SetRoomTargetTemperature(context.Background(), 1, 21, true)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))

	tokens, _, control := f.counts()
	assert.Equal(t, 1, control, "429 is never retried")
	assert.Equal(t, 1, tokens)
	assert.False(t, client.tokens.Cached())

	time.Sleep(30 * time.Millisecond)
	client.GetRooms(context.Background())

	tokens, _, _ = f.counts()
	assert.Equal(t, 2, tokens, "next call re-authenticates")
}

func TestGetRooms_TokenRejected(t *testing.T) {
	f := newFakeAdax(t)
	f.set(func(f *fakeAdax) { f.tokenStatus = http.StatusForbidden })
	client := newTestClient(f, 20*time.Millisecond)

	rooms := client.GetRooms(context.Background())
	assert.Empty(t, rooms)

	tokens, content, _ := f.counts()
	assert.Equal(t, 1, tokens, "rejected credentials are not retried")
	assert.Equal(t, 0, content)
}

func TestGetRooms_TokenRejectedKeepsPreviousSnapshot(t *testing.T) {
	f := newFakeAdax(t)
	client := newTestClient(f, 20*time.Millisecond)
	require.Len(t, client.GetRooms(context.Background()), 3)

	client.tokens.Invalidate()
	f.set(func(f *fakeAdax) { f.tokenStatus = http.StatusForbidden })
	time.Sleep(30 * time.Millisecond)

	assert.Len(t, client.GetRooms(context.Background()), 3)
}

func TestGetRooms_EmptyContentKeepsPreviousSnapshot(t *testing.T) {
	for _, body := range []string{"null", `{"homes": [], "devices": []}`} {
		t.Run(body, func(t *testing.T) {
			f := newFakeAdax(t)
			client := newTestClient(f, 20*time.Millisecond)
			require.Len(t, client.GetRooms(context.Background()), 3)
			require.Len(t, client.GetHomes(context.Background()), 1)

			f.set(func(f *fakeAdax) { f.content = body })
			time.Sleep(30 * time.Millisecond)

			assert.Len(t, client.GetRooms(context.Background()), 3)
			assert.Len(t, client.Snapshot().Homes(), 1)
			assert.Len(t, client.Snapshot().Devices(), 1)
			_, content, _ := f.counts()
			assert.Equal(t, 2, content, "second fetch was made")
		})
	}
}

func TestGetRooms_EmptyRoomListReplacesSnapshot(t *testing.T) {
	f := newFakeAdax(t)
	client := newTestClient(f, 20*time.Millisecond)
	require.Len(t, client.GetRooms(context.Background()), 3)

	f.set(func(f *fakeAdax) { f.content = `{"homes": [], "rooms": [], "devices": []}` })
	time.Sleep(30 * time.Millisecond)

	assert.Empty(t, client.GetRooms(context.Background()))
}

func TestGetEnergy_FetchedByDefault(t *testing.T) {
	f := newFakeAdax(t)
	client := New(Config{
		BaseURL:   f.server.URL,
		AccountID: "123456",
		Password:  "secret",
	})
	defer client.Close()

	energy := client.GetEnergy(context.Background())
	assert.Len(t, energy, 3)
	for id := 1; id <= 3; id++ {
		assert.Equal(t, 1, f.energyCallsFor(id), "room %d", id)
	}
	assert.Equal(t, MinInterval, client.Governor().Interval())
}

func TestGetEnergy_PartialFailureKeepsPreviousMap(t *testing.T) {
	f := newFakeAdax(t)
	client := New(Config{
		BaseURL:   f.server.URL,
		AccountID: "123456",
		Password:  "secret",
		Timeout:   50 * time.Millisecond,
	}, withMinInterval(20*time.Millisecond))
	defer client.Close()

	before := client.GetEnergy(context.Background())
	require.Len(t, before, 3)

	f.set(func(f *fakeAdax) { f.energyDelay[2] = 200 * time.Millisecond })
	time.Sleep(30 * time.Millisecond)

	after := client.GetEnergy(context.Background())
	assert.Equal(t, before, after)
	assert.Equal(t, 1+FetchRetries+1, f.energyCallsFor(2), "room 2 tried with its retry budget")
	assert.Equal(t, 1, f.energyCallsFor(3), "room 3 not fetched after room 2 failed")
}

func TestUpdate_SkippedWhileWritePending(t *testing.T) {
	f := newFakeAdax(t)
	client := newTestClient(f, 20*time.Millisecond)
	client.GetRooms(context.Background())
	f.set(func(f *fakeAdax) { f.controlDelay = 150 * time.Millisecond })

	done := make(chan error, 1)
	go func() {
		done <- client.SetRoomTargetTemperature(context.Background(), 3, 23, true)
	}()

	time.Sleep(30 * time.Millisecond)
	assert.True(t, client.WritePending())
	assert.False(t, client.Update(context.Background()), "scheduled write blocks reads")

	time.Sleep(120 * time.Millisecond)
	assert.False(t, client.Update(context.Background()), "in-flight write blocks reads")

	require.NoError(t, <-done)
	assert.False(t, client.WritePending())

	_, content, _ := f.counts()
	assert.Equal(t, 1, content)
}

func TestSetRoom_EditDuringFlushGoesToNextFlush(t *testing.T) {
	f := newFakeAdax(t)
	client := newTestClient(f, 20*time.Millisecond)
	client.GetRooms(context.Background())
	f.set(func(f *fakeAdax) { f.controlDelay = 150 * time.Millisecond })

	first := make(chan error, 1)
	go func() {
		first <- client.SetRoomTargetTemperature(context.Background(), 1, 21, true)
	}()

	require.Eventually(t, func() bool {
		_, _, control := f.counts()
		return control == 1
	}, time.Second, 5*time.Millisecond)

	second := client.SetRoomTargetTemperature(context.Background(), 2, 19, true)
	require.NoError(t, second)
	require.NoError(t, <-first)

	bodies := f.bodies()
	require.Len(t, bodies, 2)
	require.Len(t, bodies[0].Rooms, 1)
	assert.Equal(t, 1, bodies[0].Rooms[0].ID)
	require.Len(t, bodies[1].Rooms, 1)
	assert.Equal(t, 2, bodies[1].Rooms[0].ID)

	f.mu.Lock()
	assert.Equal(t, 1, f.controlMaxPar, "flushes never overlap")
	f.mu.Unlock()
}

func TestSetRoom_ContextCancelStillFlushes(t *testing.T) {
	f := newFakeAdax(t)
	client := newTestClient(f, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := client.SetRoomTargetTemperature(ctx, 1, 21, true)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Eventually(t, func() bool {
		_, _, control := f.counts()
		return control == 1
	}, time.Second, 5*time.Millisecond)
}

func TestClose_DropsScheduledWrite(t *testing.T) {
	f := newFakeAdax(t)
	client := New(Config{
		BaseURL:   f.server.URL,
		AccountID: "123456",
		Password:  "secret",
	}, withMinInterval(time.Minute))
	client.Governor().Mark()

	done := make(chan error, 1)
	go func() {
		done <- client.SetRoomTargetTemperature(context.Background(), 1, 21, true)
	}()

	require.Eventually(t, client.WritePending, time.Second, 5*time.Millisecond)
	client.Close()

	err := <-done
	require.ErrorIs(t, err, errStopped)
	_, _, control := f.counts()
	assert.Equal(t, 0, control)
}
