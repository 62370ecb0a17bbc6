package postgres

import "testing"

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/extrato":   "pgx5://u:p@localhost:5432/extrato",
		"postgresql://u:p@localhost:5432/extrato": "pgx5://u:p@localhost:5432/extrato",
		"pgx5://u:p@localhost/extrato":            "pgx5://u:p@localhost/extrato",
	}
	for in, want := range cases {
		if got := migrateURL(in); got != want {
			t.Errorf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}
