package database

// Schema contains all SQL statements for creating tables and indexes
const Schema = `
-- Connections table: one row per club member who has linked their Strava account
CREATE TABLE IF NOT EXISTS strava_connections (
    user_id TEXT PRIMARY KEY,

    -- Strava identity
    athlete_id BIGINT NOT NULL,
    athlete_name TEXT,

    -- OAuth tokens
    access_token TEXT NOT NULL,
    refresh_token TEXT NOT NULL,
    expires_at BIGINT NOT NULL,  -- epoch seconds

    -- Metadata
    connected_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- Activities table: one row per Strava activity, scoped to the owning user
CREATE TABLE IF NOT EXISTS strava_activities (
    id BIGSERIAL PRIMARY KEY,
    user_id TEXT NOT NULL,
    strava_activity_id BIGINT NOT NULL,
    athlete_id BIGINT,

    name TEXT,
    sport_type TEXT,
    activity_type TEXT,

    -- Core effort metrics. Fixed-precision columns; the normalizer clamps
    -- values into these bounds before write.
    distance NUMERIC(17,2),
    moving_time BIGINT,
    elapsed_time BIGINT,
    total_elevation_gain NUMERIC(14,2),
    average_speed NUMERIC(14,2),
    max_speed NUMERIC(14,2),
    average_cadence NUMERIC(8,2),
    average_watts NUMERIC(14,2),
    weighted_average_watts NUMERIC(14,2),
    kilojoules NUMERIC(14,2),
    average_heartrate NUMERIC(8,2),
    max_heartrate NUMERIC(8,2),
    calories NUMERIC(14,2),

    -- Timestamps. Local times are naive (no zone) by design.
    start_date TIMESTAMPTZ,
    start_date_local TIMESTAMP,
    end_date TIMESTAMPTZ,
    end_date_local TIMESTAMP,
    timezone TEXT,
    utc_offset DOUBLE PRECISION,

    -- Geocoordinates
    start_lat DECIMAL(12,8),
    start_lng DECIMAL(12,8),
    end_lat DECIMAL(12,8),
    end_lng DECIMAL(12,8),

    -- Social counters
    achievement_count INTEGER,
    kudos_count INTEGER,
    comment_count INTEGER,
    athlete_count INTEGER,
    pr_count INTEGER,

    -- Flags
    trainer BOOLEAN,
    commute BOOLEAN,
    manual BOOLEAN,
    private BOOLEAN,
    flagged BOOLEAN,
    has_heartrate BOOLEAN,

    -- Classification
    is_valid BOOLEAN NOT NULL DEFAULT FALSE,
    synced_at TIMESTAMPTZ NOT NULL,

    UNIQUE (user_id, strava_activity_id)
);

-- Notifications table: append-only, one row per ingested activity event
CREATE TABLE IF NOT EXISTS activity_notifications (
    id BIGSERIAL PRIMARY KEY,
    user_id TEXT NOT NULL,
    athlete_id BIGINT,
    activity_id BIGINT,
    activity_name TEXT,
    distance_km DOUBLE PRECISION,
    pace_min_per_km DOUBLE PRECISION,
    is_valid BOOLEAN,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    read_at TIMESTAMPTZ
);

-- Indexes for strava_connections
CREATE INDEX IF NOT EXISTS idx_connections_athlete_id ON strava_connections(athlete_id);

-- Indexes for strava_activities
CREATE INDEX IF NOT EXISTS idx_activities_user_id ON strava_activities(user_id);
CREATE INDEX IF NOT EXISTS idx_activities_start_date ON strava_activities(start_date DESC);
CREATE INDEX IF NOT EXISTS idx_activities_user_start ON strava_activities(user_id, start_date DESC);
CREATE INDEX IF NOT EXISTS idx_activities_is_valid ON strava_activities(is_valid);

-- Indexes for activity_notifications
CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON activity_notifications(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_unread ON activity_notifications(user_id) WHERE read_at IS NULL;
`
