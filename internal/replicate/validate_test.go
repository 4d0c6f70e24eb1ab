package replicate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowclone/internal/infra/persistence/memory"
	"flowclone/internal/schema"
	"flowclone/internal/tablestore"
)

func TestValidateRoot(t *testing.T) {
	src := memory.NewStore()
	seedRun(src, "R1", "A")
	v := Validator{Graph: schema.Default()}

	require.NoError(t, v.ValidateRoot(context.Background(), src, "R1"))
	err := v.ValidateRoot(context.Background(), src, "R404")
	require.ErrorIs(t, err, ErrRootNotFound)
}

func TestValidateRootUsesBoardTable(t *testing.T) {
	src := memory.NewStore()
	// A flowcell row alone does not make the run visible.
	src.Seed("gh_flowcell", tablestore.Row{"runid": "R1"})
	v := Validator{Graph: schema.Default()}
	require.ErrorIs(t, v.ValidateRoot(context.Background(), src, "R1"), ErrRootNotFound)
}

func TestValidateChildrenChecksGeneratedOnly(t *testing.T) {
	dst := memory.NewStore()
	dst.Seed("gh_sample", tablestore.Row{"runid": "OLD", "run_sample_id": "GTAKENG_1"})
	v := Validator{Graph: schema.Default()}
	ctx := context.Background()

	require.NoError(t, v.ValidateChildren(ctx, dst, Mapping{{Source: "A", Dest: "GTAKENG_1"}}))
	err := v.ValidateChildren(ctx, dst, Mapping{{Source: "A", Dest: "GTAKENG_1", Generated: true}})
	require.ErrorIs(t, err, ErrDestinationCollision)
}

func TestValidateDestinationRootChecksEveryTable(t *testing.T) {
	v := Validator{Graph: schema.Default()}
	for _, table := range schema.Default().Tables() {
		dst := memory.NewStore()
		dst.Seed(table, tablestore.Row{"runid": "R2"})
		err := v.ValidateDestinationRoot(context.Background(), dst, "R2")
		require.ErrorIs(t, err, ErrDestinationAlreadyExists, table)
		assert.Contains(t, err.Error(), table)
	}
	require.NoError(t, v.ValidateDestinationRoot(context.Background(), memory.NewStore(), "R2"))
}
