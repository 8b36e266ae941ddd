package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neighbridge/neighbridge-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks ...string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestCommunitiesMigration(t *testing.T) {
	assertContains(t, readMigration(t, "create_communities"),
		"CREATE TABLE IF NOT EXISTS communities",
		"community_id  TEXT PRIMARY KEY",
		"CHECK (radius_meters BETWEEN 100 AND 50000)",
		"CHECK (member_count >= 0)",
		"idx_communities_center",
		"DROP TABLE IF EXISTS communities",
	)
}

func TestMembershipsMigration(t *testing.T) {
	assertContains(t, readMigration(t, "create_memberships"),
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_memberships_user_community ON memberships (user_id, community_id)",
		"REFERENCES communities(community_id) ON DELETE CASCADE",
		"idx_memberships_community_role",
		"idx_memberships_user_status",
		"DROP TABLE IF EXISTS memberships",
	)
}

func TestUserLocationsMigration(t *testing.T) {
	assertContains(t, readMigration(t, "create_user_locations"),
		"user_id    UUID PRIMARY KEY",
		"DROP TABLE IF EXISTS user_locations",
	)
}

func TestGeographyMigrationIsOptional(t *testing.T) {
	assertContains(t, readMigration(t, "add_geography_columns"),
		"pg_available_extensions",
		"CREATE EXTENSION IF NOT EXISTS postgis",
		"GENERATED ALWAYS AS (ST_SetSRID(ST_MakePoint(center_lng, center_lat), 4326)::geography) STORED",
		"USING GIST (geom)",
	)
}
