package employee

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	e := New("John", "Smith")

	require.NotEqual(t, uuid.Nil, e.PersonID())
	require.Equal(t, StatusActive, e.Status())
	require.Equal(t, "John Smith", e.FullName())
	require.Equal(t, "john smith", e.NormalizedName())
	require.Equal(t, []string{"john smith"}, e.KnownAliases())
	require.False(t, e.NeedsProfileCompletion())
}

func TestNewFromMention(t *testing.T) {
	ctx := MentionContext{
		ProjectID:  "proj-7",
		ReportDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		ReportID:   "rep-42",
	}
	e := NewFromMention("owen glass burner", ctx)

	require.Equal(t, "Owen", e.FirstName())
	require.Equal(t, "Glass Burner", e.LastName())
	require.True(t, e.NeedsProfileCompletion())
	require.Equal(t, "rep-42", e.FirstMentionedReportID())
	require.Equal(t, ctx.ReportDate, e.FirstMentionedDate())
	require.Equal(t, "proj-7", e.LastSeenProjectID())
	require.True(t, e.HasAlias("owen glass burner"))
}

func TestNewFromMention_SingleToken(t *testing.T) {
	e := NewFromMention("Scott", MentionContext{})
	require.Equal(t, "Scott", e.FirstName())
	require.Empty(t, e.LastName())
	require.True(t, e.HasAlias("scott"))
}

func TestEmployee_WithAlias_Monotonic(t *testing.T) {
	e := New("John", "Smith")
	before := len(e.KnownAliases())

	e = e.WithAlias("johnny smith")
	require.Len(t, e.KnownAliases(), before+1)
	require.True(t, e.HasAlias("johnny smith"))

	// idempotent re-add
	e = e.WithAlias("johnny smith")
	require.Len(t, e.KnownAliases(), before+1)

	// empty alias is ignored
	e = e.WithAlias("")
	require.Len(t, e.KnownAliases(), before+1)
}

func TestEmployee_WithAliases_Union(t *testing.T) {
	e := New("John", "Smith").WithAlias("johnny smith")
	merged := e.WithAliases([]string{"jon smith", "john smith", "j smith"})

	require.ElementsMatch(t,
		[]string{"john smith", "johnny smith", "jon smith", "j smith"},
		merged.KnownAliases(),
	)
}

func TestEmployee_WithProfile_ClearsCompletionFlag(t *testing.T) {
	e := NewFromMention("John Smith", MentionContext{})
	require.True(t, e.NeedsProfileCompletion())

	// partial edit keeps the flag
	e2 := e.WithProfile("John", "Smith", "", "", "", "")
	require.True(t, e2.NeedsProfileCompletion())

	// contact details complete the profile
	e3 := e.WithProfile("John", "Smith", "", "", "john@site.example", "")
	require.False(t, e3.NeedsProfileCompletion())
}

func TestEmployee_WithSighting(t *testing.T) {
	e := New("John", "Smith")
	first := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	second := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)

	e = e.WithSighting(MentionContext{ProjectID: "p1", ReportDate: first, ReportID: "r1"})
	require.Equal(t, first, e.FirstMentionedDate())
	require.Equal(t, "r1", e.FirstMentionedReportID())
	require.Equal(t, first, e.LastSeenDate())

	e = e.WithSighting(MentionContext{ProjectID: "p2", ReportDate: second, ReportID: "r2"})
	// first-mention provenance is immutable
	require.Equal(t, first, e.FirstMentionedDate())
	require.Equal(t, "r1", e.FirstMentionedReportID())
	require.Equal(t, second, e.LastSeenDate())
	require.Equal(t, "p2", e.LastSeenProjectID())
}

func TestEmployee_WithMergedInto(t *testing.T) {
	primary := New("John", "Smith")
	dup := New("Jon", "Smith")
	on := time.Now()

	dup = dup.WithMergedInto(primary.PersonID(), on)
	require.Equal(t, StatusTerminated, dup.Status())
	require.Equal(t, ReasonMergedAway, dup.TerminationReason())
	require.Equal(t, primary.PersonID(), dup.MergedInto())
}

func TestEmployee_WithTermination(t *testing.T) {
	e := New("John", "Smith").WithTermination(time.Now(), ReasonResigned)
	require.Equal(t, StatusTerminated, e.Status())
	require.Equal(t, ReasonResigned, e.TerminationReason())
	require.Equal(t, uuid.Nil, e.MergedInto())
}

func TestEmployee_FullName_PreferredName(t *testing.T) {
	e := New("Jonathan", "Smith").WithProfile("Jonathan", "Smith", "Q", "Jon", "", "")
	require.Equal(t, "Jon Q Smith", e.FullName())
	// canonical key stays on the legal name
	require.Equal(t, "jonathan smith", e.NormalizedName())
}

func TestCreateDTO_Ok(t *testing.T) {
	dto := &CreateDTO{FirstName: "  John ", LastName: "Smith", Email: "john@site.example"}
	errs, ok := dto.Ok()
	require.True(t, ok, "unexpected validation errors: %v", errs)
	require.Equal(t, "John", dto.FirstName)

	e := dto.ToEntity()
	require.Equal(t, "John Smith", e.FullName())
	require.False(t, e.NeedsProfileCompletion())
}

func TestCreateDTO_Invalid(t *testing.T) {
	dto := &CreateDTO{FirstName: "John"}
	errs, ok := dto.Ok()
	require.False(t, ok)
	require.Contains(t, errs, "LastName")

	dto = &CreateDTO{FirstName: "John", LastName: "Smith", Email: "not-an-email"}
	errs, ok = dto.Ok()
	require.False(t, ok)
	require.Contains(t, errs, "Email")
}

func TestUpdateDTO_Apply(t *testing.T) {
	e := NewFromMention("John Smith", MentionContext{})

	email := "john@site.example"
	dto := &UpdateDTO{Email: &email}
	_, ok := dto.Ok()
	require.True(t, ok)

	updated := dto.Apply(e)
	require.Equal(t, "john@site.example", updated.Email())
	require.False(t, updated.NeedsProfileCompletion())
	// untouched fields carry over
	require.Equal(t, "John", updated.FirstName())
}
