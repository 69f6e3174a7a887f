package store

import (
	"context"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// notifyFunction publishes a compact change record on '<table>_changes'.
// The row itself is not sent; pg_notify payloads are capped at 8000 bytes.
const notifyFunction = `CREATE OR REPLACE FUNCTION dataviewer_notify() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify(
		TG_TABLE_NAME || '_changes',
		json_build_object(
			'op', TG_OP,
			'table', TG_TABLE_NAME,
			'id', CASE WHEN TG_OP = 'DELETE' THEN OLD.id ELSE NEW.id END
		)::text
	);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`

// Migrate creates missing tables and indexes. On Postgres it also installs
// the change notification trigger on every table.
func (s *Store) Migrate(ctx context.Context) error {
	for _, t := range Tables {
		for _, stmt := range s.tableDDL(t) {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, "migrating %s", t.Name)
			}
		}
	}
	if s.d.driver != "postgres" {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, notifyFunction); err != nil {
		return errors.Wrap(err, "creating notify function")
	}
	for _, t := range Tables {
		trigger := quoteIdent(t.Name + "_notify")
		stmts := []string{
			"DROP TRIGGER IF EXISTS " + trigger + " ON " + quoteIdent(t.Name),
			"CREATE TRIGGER " + trigger + " AFTER INSERT OR UPDATE OR DELETE ON " +
				quoteIdent(t.Name) + " FOR EACH ROW EXECUTE FUNCTION dataviewer_notify()",
		}
		for _, stmt := range stmts {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, "installing trigger on %s", t.Name)
			}
		}
	}
	glog.Infof("store: notify triggers installed on %d tables", len(Tables))
	return nil
}

func (s *Store) tableDDL(t *Table) []string {
	defs := []string{s.d.pkey}
	for _, c := range t.Columns {
		defs = append(defs, quoteIdent(c.Name)+" "+s.d.types[c.Kind])
	}
	return []string{
		"CREATE TABLE IF NOT EXISTS " + quoteIdent(t.Name) + " (\n\t" + strings.Join(defs, ",\n\t") + "\n)",
		"CREATE INDEX IF NOT EXISTS " + quoteIdent(t.Name+"_"+t.DefaultSort+"_idx") +
			" ON " + quoteIdent(t.Name) + " (" + quoteIdent(t.DefaultSort) + ")",
	}
}
