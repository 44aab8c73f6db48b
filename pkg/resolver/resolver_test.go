package resolver

import (
	"testing"

	"github.com/coolbeans/regelrecht/pkg/lawdoc"
	"github.com/coolbeans/regelrecht/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) value.Date {
	t.Helper()
	d, err := value.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestGetLawForDateClosedOpenInterval(t *testing.T) {
	idx := NewIndex()
	until := mustDate(t, "2024-01-01")
	require.NoError(t, idx.Insert(&lawdoc.Law{
		LawID: "zvw", ValidFrom: mustDate(t, "2023-01-01"), ValidUntil: &until,
	}))
	require.NoError(t, idx.Insert(&lawdoc.Law{
		LawID: "zvw", ValidFrom: mustDate(t, "2024-01-01"),
	}))

	law, err := idx.GetLawForDate("zvw", mustDate(t, "2023-06-01"))
	require.NoError(t, err)
	assert.Equal(t, mustDate(t, "2023-01-01"), law.ValidFrom)

	law, err = idx.GetLawForDate("zvw", mustDate(t, "2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, mustDate(t, "2024-01-01"), law.ValidFrom)

	_, err = idx.GetLawForDate("zvw", mustDate(t, "2022-01-01"))
	require.Error(t, err)
}

func TestInsertRejectsDuplicateValidFrom(t *testing.T) {
	idx := NewIndex()
	from := mustDate(t, "2023-01-01")
	require.NoError(t, idx.Insert(&lawdoc.Law{LawID: "zvw", ValidFrom: from}))
	err := idx.Insert(&lawdoc.Law{LawID: "zvw", ValidFrom: from})
	require.Error(t, err)
}

func TestGetArticleByOutputUsesMatchingVersion(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.Insert(&lawdoc.Law{
		LawID:     "zvw",
		ValidFrom: mustDate(t, "2023-01-01"),
		Articles: []*lawdoc.Article{{
			Number: "2.1",
			MachineReadable: &lawdoc.MachineReadable{
				Execution: &lawdoc.Execution{Output: []lawdoc.Output{{Name: "drempelinkomen"}}},
			},
		}},
	}))

	law, article, err := idx.GetArticleByOutput("zvw", "drempelinkomen", mustDate(t, "2023-06-01"))
	require.NoError(t, err)
	assert.Equal(t, "zvw", law.LawID)
	assert.Equal(t, "2.1", article.Number)

	_, _, err = idx.GetArticleByOutput("zvw", "nonexistent", mustDate(t, "2023-06-01"))
	require.Error(t, err)
}

func TestFindDelegationFallsBackToFalse(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.Insert(&lawdoc.Law{
		LawID:        "afstemmingsverordening-amsterdam",
		GemeenteCode: "GM0363",
		ValidFrom:    mustDate(t, "2020-01-01"),
		Articles: []*lawdoc.Article{{
			Number: "1",
			MachineReadable: &lawdoc.MachineReadable{
				LegalBasisFor: &lawdoc.LegalBasisFor{DelegationID: "afstemmingsverordening"},
				Execution: &lawdoc.Execution{
					Output: []lawdoc.Output{{Name: "minimale_afstand_cm"}},
				},
			},
		}},
	}))

	law, _, ok := idx.FindDelegation("afstemmingsverordening", "GM0363", mustDate(t, "2025-01-01"))
	require.True(t, ok)
	assert.Equal(t, "afstemmingsverordening-amsterdam", law.LawID)

	_, _, ok = idx.FindDelegation("afstemmingsverordening", "GM9999", mustDate(t, "2025-01-01"))
	assert.False(t, ok)
}
