package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

const profileHTML = `<!DOCTYPE html>
<html>
<head>
  <meta property="og:title" content="Jane Rivera - Senior Backend Engineer | LinkedIn">
  <meta property="og:url" content="https://www.linkedin.com/in/jane-rivera?utm_source=share">
</head>
<body>
<section data-member-id="12345">
  <h1><span aria-hidden="true">Jane Rivera</span></h1>
  <div data-test-id="top-card__headline"><span aria-hidden="true">Senior Backend Engineer</span></div>
  <div data-test-id="current-company"><span aria-hidden="true">Acme Corp</span></div>
  <span data-test-id="top-card__location">Madrid, Spain</span>
  <a href="mailto:jane@example.com">Email</a>
  <a href="tel:+34600111222">Call</a>
</section>
<section>
  <div id="about"></div>
  <div class="inline-show-more-text">Backend engineer focused on <strong>distributed systems</strong>.</div>
</section>
<section>
  <div id="experience"></div>
  <ul>
    <li class="artdeco-list__item">
      <div class="t-bold"><span aria-hidden="true">Senior Backend Engineer</span></div>
      <span class="t-14 t-normal"><span aria-hidden="true">Acme Corp</span></span>
      <span class="t-14 t-normal t-black--light"><span aria-hidden="true">Jan 2021 - Present · 4 yrs</span></span>
      <span class="t-14 t-normal t-black--light"><span aria-hidden="true">Madrid</span></span>
      <div class="inline-show-more-text--is-collapsed">Owns the ingestion pipeline.</div>
    </li>
    <li class="artdeco-list__item">
      <div class="t-bold"><span aria-hidden="true">Backend Engineer</span></div>
      <span class="t-14 t-normal"><span aria-hidden="true">Globex</span></span>
      <span class="t-14 t-normal t-black--light"><span aria-hidden="true">2018 - 2021</span></span>
    </li>
  </ul>
</section>
<section>
  <div id="education"></div>
  <ul>
    <li class="pvs-list__item">
      <div class="t-bold"><span aria-hidden="true">Universidad Complutense</span></div>
      <span class="t-14 t-normal"><span aria-hidden="true">BSc Computer Science</span></span>
      <span class="t-14 t-normal t-black--light"><span aria-hidden="true">2014 - 2018</span></span>
    </li>
  </ul>
</section>
<section>
  <div id="skills"></div>
  <ul>
    <li class="artdeco-list__item"><div class="t-bold"><span aria-hidden="true">Go</span></div></li>
    <li class="artdeco-list__item"><div class="t-bold"><span aria-hidden="true">PostgreSQL</span></div></li>
    <li class="artdeco-list__item"><div class="t-bold"><span aria-hidden="true">Go</span></div></li>
  </ul>
</section>
<section>
  <div id="languages"></div>
  <ul>
    <li class="artdeco-list__item">
      <div class="t-bold"><span aria-hidden="true">Spanish</span></div>
      <span class="t-14 t-normal t-black--light"><span aria-hidden="true">Native</span></span>
    </li>
    <li class="artdeco-list__item">
      <div class="t-bold"><span aria-hidden="true">English</span></div>
      <span class="t-14 t-normal t-black--light"><span aria-hidden="true">Professional working proficiency</span></span>
    </li>
  </ul>
</section>
</body>
</html>`

func TestExtract_FullProfile(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	candidate, err := svc.Extract(profileHTML)
	require.NoError(t, err)

	assert.Equal(t, "Jane Rivera", candidate.Name)
	assert.Equal(t, "Rivera", candidate.LastName)
	assert.Equal(t, "Senior Backend Engineer", candidate.Role)
	assert.Equal(t, "Acme Corp", candidate.Organization)
	assert.Equal(t, "Madrid, Spain", candidate.Location)
	assert.Equal(t, "Madrid, Spain", candidate.PlaceOfResidency)
	assert.Equal(t, "jane@example.com", candidate.Email)
	assert.Equal(t, "+34600111222", candidate.Phone)
	assert.Equal(t, "https://www.linkedin.com/in/jane-rivera", candidate.ProfileURL)
	assert.Contains(t, candidate.About, "distributed systems")

	require.Len(t, candidate.WorkExperience, 2)
	first := candidate.WorkExperience[0]
	assert.Equal(t, "Senior Backend Engineer", first.Title)
	assert.Equal(t, "Acme Corp", first.Company)
	assert.Equal(t, "Jan 2021", first.DateFrom)
	assert.Equal(t, "Present", first.DateTo)
	assert.Equal(t, "Madrid", first.Location)
	assert.Equal(t, "Owns the ingestion pipeline.", first.Description)

	require.Len(t, candidate.Education, 1)
	assert.Equal(t, "Universidad Complutense", candidate.Education[0].Institution)
	assert.Equal(t, "BSc Computer Science", candidate.Education[0].Degree)
	assert.Equal(t, "2014", candidate.Education[0].DateFrom)
	assert.Equal(t, "2018", candidate.Education[0].DateTo)

	assert.Equal(t, []string{"Go", "PostgreSQL"}, candidate.Skills)
	assert.Equal(t, "Professional working proficiency", candidate.LevelOfEnglish)
}

func TestExtract_OgTitleOnly(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	html := `<html><head>
		<meta property="og:title" content="John Smith | LinkedIn">
	</head><body></body></html>`

	candidate, err := svc.Extract(html)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", candidate.Name)
	assert.Equal(t, "Smith", candidate.LastName)
	assert.Empty(t, candidate.Role)
	assert.Empty(t, candidate.WorkExperience)
}

func TestExtract_TopCardFallbackWithoutOgTitle(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	html := `<html><body>
		<section data-member-id="99">
			<h1><span aria-hidden="true">Marta Sosa</span></h1>
			<div data-test-id="top-card__headline"><span aria-hidden="true">Data Engineer</span></div>
		</section>
	</body></html>`

	candidate, err := svc.Extract(html)
	require.NoError(t, err)
	assert.Equal(t, "Marta Sosa", candidate.Name)
	assert.Equal(t, "Sosa", candidate.LastName)
	assert.Equal(t, "Data Engineer", candidate.Role)
}

func TestExtract_NoName(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	_, err := svc.Extract("<html><body><p>Sign in to continue</p></body></html>")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		raw  string
		from string
		to   string
	}{
		{"Jan 2021 - Present · 4 yrs", "Jan 2021", "Present"},
		{"2018 - 2021", "2018", "2021"},
		{"2020", "2020", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		from, to := parseDateRange(tt.raw)
		assert.Equal(t, tt.from, from, tt.raw)
		assert.Equal(t, tt.to, to, tt.raw)
	}
}
