package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"runclub-strava-sync/internal/metrics"
)

// PerPage is the page size used for activity listing. 200 is Strava's maximum.
const PerPage = 200

// Activity is the summary representation returned by the Strava API
type Activity struct {
	ID      int64 `json:"id"`
	Athlete struct {
		ID int64 `json:"id"`
	} `json:"athlete"`

	Name         string `json:"name"`
	SportType    string `json:"sport_type"`
	ActivityType string `json:"type"`

	Distance             *float64 `json:"distance"`
	MovingTime           *int64   `json:"moving_time"`
	ElapsedTime          *int64   `json:"elapsed_time"`
	TotalElevationGain   *float64 `json:"total_elevation_gain"`
	AverageSpeed         *float64 `json:"average_speed"`
	MaxSpeed             *float64 `json:"max_speed"`
	AverageCadence       *float64 `json:"average_cadence"`
	AverageWatts         *float64 `json:"average_watts"`
	WeightedAverageWatts *float64 `json:"weighted_average_watts"`
	Kilojoules           *float64 `json:"kilojoules"`
	AverageHeartrate     *float64 `json:"average_heartrate"`
	MaxHeartrate         *float64 `json:"max_heartrate"`
	Calories             *float64 `json:"calories"`

	StartDate *time.Time `json:"start_date"`
	Timezone  string     `json:"timezone"`
	UTCOffset *float64   `json:"utc_offset"`

	StartLatLng []float64 `json:"start_latlng"`
	EndLatLng   []float64 `json:"end_latlng"`

	AchievementCount *int64 `json:"achievement_count"`
	KudosCount       *int64 `json:"kudos_count"`
	CommentCount     *int64 `json:"comment_count"`
	AthleteCount     *int64 `json:"athlete_count"`
	PRCount          *int64 `json:"pr_count"`

	Trainer      *bool `json:"trainer"`
	Commute      *bool `json:"commute"`
	Manual       *bool `json:"manual"`
	Private      *bool `json:"private"`
	Flagged      *bool `json:"flagged"`
	HasHeartrate *bool `json:"has_heartrate"`
}

// GetActivity fetches one activity by id
func (c *Client) GetActivity(ctx context.Context, accessToken string, activityID int64) (*Activity, error) {
	path := fmt.Sprintf("/activities/%d", activityID)

	respBody, err := c.doRequest(ctx, metrics.OpGetActivity, path, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity %d: %w", activityID, err)
	}

	var activity Activity
	if err := json.Unmarshal(respBody, &activity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity: %w", err)
	}

	return &activity, nil
}

// ListActivities fetches one page of the athlete's activities within
// [after, before), both epoch seconds
func (c *Client) ListActivities(ctx context.Context, accessToken string, page int, after, before int64) ([]*Activity, error) {
	if page < 1 {
		page = 1
	}

	params := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(PerPage)},
		"after":    {strconv.FormatInt(after, 10)},
		"before":   {strconv.FormatInt(before, 10)},
	}

	path := "/athlete/activities?" + params.Encode()

	respBody, err := c.doRequest(ctx, metrics.OpListActivities, path, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	var activities []*Activity
	if err := json.Unmarshal(respBody, &activities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activities: %w", err)
	}

	return activities, nil
}
