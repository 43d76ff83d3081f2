package documents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeMetricsRounding(t *testing.T) {
	cases := []struct {
		registered, attended int
		rate                 int
	}{
		{0, 0, 0},
		{1, 0, 0},
		{1, 1, 100},
		{3, 1, 33},
		{3, 2, 67},
		{6, 1, 17},
		{8, 7, 88},
	}

	for _, tc := range cases {
		doc := EventDocument{}
		for i := 0; i < tc.registered; i++ {
			doc.Registrations = append(doc.Registrations, Registration{
				UserID:   i + 1,
				State:    RegistrationConfirmed,
				Attended: i < tc.attended,
			})
		}
		doc.RecomputeMetrics()
		assert.Equal(t, tc.registered, doc.Metrics.Registered)
		assert.Equal(t, tc.attended, doc.Metrics.Attended)
		assert.Equal(t, tc.rate, doc.Metrics.AttendanceRate, "%d/%d", tc.attended, tc.registered)
	}
}

func TestRecomputeMetricsSkipsCancelled(t *testing.T) {
	doc := EventDocument{
		Registrations: []Registration{
			{UserID: 1, State: RegistrationConfirmed, Attended: true},
			{UserID: 2, State: RegistrationCancelled, Attended: true},
			{UserID: 3, State: RegistrationWaitlisted},
		},
	}
	doc.RecomputeMetrics()
	assert.Equal(t, 2, doc.Metrics.Registered)
	assert.Equal(t, 1, doc.Metrics.Attended)
	assert.Equal(t, 50, doc.Metrics.AttendanceRate)
}

func TestMegaRecomputeMetrics(t *testing.T) {
	doc := MegaEventDocument{
		Participants: []Registration{
			{UserID: 1, State: RegistrationConfirmed, Attended: true},
			{UserID: 2, State: RegistrationWaitlisted, Attended: true},
			{UserID: 3, State: RegistrationCancelled},
		},
		Organizers: []OrganizerEntry{
			{NGOID: 10, Active: true},
			{NGOID: 11, Active: false},
		},
		Sponsors: []PledgeEntry{
			{CompanyID: 4, Amount: 5000, State: "confirmed"},
			{CompanyID: 5, Amount: 2000, State: "pledged"},
			{CompanyID: 6, Amount: 1000, State: "cancelled"},
		},
	}
	doc.Metrics.Budget.TotalSpent = 1500
	doc.RecomputeMetrics()

	assert.Equal(t, 1, doc.Metrics.Participants, "waitlisted and cancelled do not count")
	assert.Equal(t, 1, doc.Metrics.Attended)
	assert.Equal(t, 100, doc.Metrics.AttendanceRate)
	assert.Equal(t, 1, doc.Metrics.Organizers)
	assert.Equal(t, 2, doc.Metrics.Sponsors, "cancelled pledges drop out")
	assert.Equal(t, 5000.0, doc.Metrics.PledgedTotal)
	assert.Equal(t, 5000.0, doc.Metrics.Budget.TotalRaised)
	assert.Equal(t, 1500.0, doc.Metrics.Budget.TotalSpent, "spend is organizer-reported")
	assert.Equal(t, 3500.0, doc.Metrics.Budget.FinalBalance)
}

func TestImageDataURL(t *testing.T) {
	img := Image{MIME: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}}
	assert.Equal(t, "data:image/png;base64,iVBORw==", img.DataURL())
}

func TestEventValidate(t *testing.T) {
	start := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	t.Run("missing title", func(t *testing.T) {
		doc := EventDocument{NGOID: 1}
		require.Error(t, doc.Validate())
	})

	t.Run("missing owner", func(t *testing.T) {
		doc := EventDocument{Title: "x"}
		require.Error(t, doc.Validate())
	})

	t.Run("negative capacity", func(t *testing.T) {
		doc := EventDocument{Title: "x", NGOID: 1, Capacity: -1}
		require.Error(t, doc.Validate())
	})

	t.Run("end before start", func(t *testing.T) {
		doc := EventDocument{Title: "x", NGOID: 1, StartDate: &start, EndDate: &end}
		require.Error(t, doc.Validate())
	})

	t.Run("capacity over ceiling", func(t *testing.T) {
		doc := EventDocument{Title: "x", NGOID: 1, Capacity: MaxEventCapacity + 1}
		require.Error(t, doc.Validate())
	})

	t.Run("deadline after start", func(t *testing.T) {
		deadline := start.Add(time.Hour)
		doc := EventDocument{Title: "x", NGOID: 1, StartDate: &start, EnrollmentDeadline: &deadline}
		require.Error(t, doc.Validate())
	})

	t.Run("unknown location mode", func(t *testing.T) {
		doc := EventDocument{Title: "x", NGOID: 1, Location: Location{Mode: "astral"}}
		require.Error(t, doc.Validate())
	})

	t.Run("valid", func(t *testing.T) {
		doc := EventDocument{
			Title:     "x",
			NGOID:     1,
			StartDate: &start,
			Capacity:  MaxEventCapacity,
			Location:  Location{Address: "Plaza", Mode: ModeInPerson},
		}
		require.NoError(t, doc.Validate())
	})
}

func TestMegaEventValidate(t *testing.T) {
	start := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	t.Run("end date required", func(t *testing.T) {
		doc := MegaEventDocument{Title: "x", StartDate: &start}
		require.Error(t, doc.Validate())
	})

	t.Run("capacity over ceiling", func(t *testing.T) {
		doc := MegaEventDocument{Title: "x", StartDate: &start, EndDate: &end, Capacity: MaxMegaEventCapacity + 1}
		require.Error(t, doc.Validate())
	})

	t.Run("runs longer than a month", func(t *testing.T) {
		late := start.Add(MaxMegaEventDuration + time.Hour)
		doc := MegaEventDocument{Title: "x", StartDate: &start, EndDate: &late}
		require.Error(t, doc.Validate())
	})

	t.Run("valid", func(t *testing.T) {
		doc := MegaEventDocument{
			Title:     "x",
			StartDate: &start,
			EndDate:   &end,
			Capacity:  MaxMegaEventCapacity,
			Location:  Location{Address: "Expo center", Mode: ModeHybrid},
		}
		require.NoError(t, doc.Validate())
	})
}

func TestSafeProjectionInlinesImages(t *testing.T) {
	doc := EventDocument{
		Title:  "Gala",
		Images: []Image{{MIME: "image/png", Data: []byte{1, 2, 3}}},
	}
	proj := doc.SafeProjection()

	images, ok := proj["images"].([]string)
	require.True(t, ok)
	require.Len(t, images, 1)
	assert.Contains(t, images[0], "data:image/png;base64,")
	assert.NotContains(t, proj, "Data")
}
