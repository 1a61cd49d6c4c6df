package petfinder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRenderer struct {
	html     string
	err      error
	fetched  []string
	rendered []string
}

func (r *fakeRenderer) Fetch(_ context.Context, target string) (string, error) {
	r.fetched = append(r.fetched, target)
	return r.html, r.err
}

func (r *fakeRenderer) FetchJS(_ context.Context, target string) (string, error) {
	r.rendered = append(r.rendered, target)
	return r.html, r.err
}

type fakeDOM struct {
	texts   map[string]string
	attrs   map[string]string
	hrefs   []string
	err     error
	clicked []string
}

func (d *fakeDOM) FirstTextAfterClick(_ context.Context, _ string, clickExpr string, exprs map[string]string) (map[string]string, error) {
	if clickExpr != "" {
		d.clicked = append(d.clicked, clickExpr)
	}
	if d.err != nil {
		return nil, d.err
	}
	out := map[string]string{}
	for name := range exprs {
		out[name] = d.texts[name]
	}
	return out, nil
}

func (d *fakeDOM) FirstAttr(_ context.Context, _ string, exprs map[string]string, _ string) (map[string]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := map[string]string{}
	for name := range exprs {
		out[name] = d.attrs[name]
	}
	return out, nil
}

func (d *fakeDOM) AllHrefs(_ context.Context, _ string, _ []string) ([]string, error) {
	return d.hrefs, d.err
}

func fullPageTexts() map[string]string {
	return map[string]string{
		"name":            "About Rex",
		"location":        "New York, NY",
		"age":             "Adult",
		"gender":          "Male",
		"size":            "Large",
		"color":           "Black",
		"breed":           "Labrador Retriever",
		"spayed_neutered": "Yes",
		"vaccinated":      "Yes",
		"special_needs":   "No",
		"kids_compatible": "Yes",
		"dogs_compatible": "Yes",
		"cats_compatible": "No",
		"about_me":        "Friendly and housetrained.",
	}
}

func TestFetchItemBuildsRecord(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{html: "<html/>"}
	dom := &fakeDOM{texts: fullPageTexts(), attrs: map[string]string{"image": "https://img.example/rex.jpg"}}
	f := NewFetcher(renderer, dom, zap.NewNop())

	rec, err := f.FetchItem(context.Background(), "https://www.petfinder.com/dog/rex-123/")
	require.NoError(t, err)

	assert.Equal(t, "https://www.petfinder.com/dog/rex-123/", rec.Key)
	assert.Equal(t, "Rex", rec.Field("name"))
	assert.Equal(t, "New York, NY", rec.Field("location"))
	assert.Equal(t, "True", rec.Field("spayed_neutered"))
	assert.Equal(t, "False", rec.Field("special_needs"))
	assert.Equal(t, "True", rec.Field("kids_compatible"))
	assert.Equal(t, "False", rec.Field("cats_compatible"))
	assert.Equal(t, "https://img.example/rex.jpg", rec.Field("image"))

	// The detail page goes through the plain endpoint, and the
	// description expander is clicked before fields are read.
	assert.Equal(t, []string{"https://www.petfinder.com/dog/rex-123/"}, renderer.fetched)
	assert.Empty(t, renderer.rendered)
	assert.Equal(t, []string{showMoreButtonXPath}, dom.clicked)
}

func TestFetchItemRenderErrorPropagates(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{err: errors.New("service down")}
	f := NewFetcher(renderer, &fakeDOM{}, zap.NewNop())

	_, err := f.FetchItem(context.Background(), "/dog/rex-123/")
	require.Error(t, err)
}

func TestValidateCountsEmptyFields(t *testing.T) {
	t.Parallel()

	texts := fullPageTexts()
	texts["location"] = ""
	texts["breed"] = ""
	texts["about_me"] = ""

	renderer := &fakeRenderer{html: "<html/>"}
	dom := &fakeDOM{texts: texts, attrs: map[string]string{"image": ""}}
	v := NewValidator(renderer, dom, zap.NewNop())

	failed, err := v.Validate(context.Background(), "/dog/rex-123/")
	require.NoError(t, err)
	assert.Equal(t, 4, failed)
}

func TestValidateFullPageHasNoFailures(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{html: "<html/>"}
	dom := &fakeDOM{texts: fullPageTexts(), attrs: map[string]string{"image": "https://img.example/rex.jpg"}}
	v := NewValidator(renderer, dom, zap.NewNop())

	failed, err := v.Validate(context.Background(), "/dog/rex-123/")
	require.NoError(t, err)
	assert.Zero(t, failed)
}

func TestValidateRenderErrorIsNotAFailureCount(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{err: errors.New("timeout")}
	v := NewValidator(renderer, &fakeDOM{}, zap.NewNop())

	_, err := v.Validate(context.Background(), "/dog/rex-123/")
	require.Error(t, err)
}

func TestListPageFormatsSearchURL(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{html: "<html/>"}
	dom := &fakeDOM{hrefs: []string{
		"/dog/rex-123/ny/new-york/details/",
		"https://www.petfinder.com/dog/spot-456/",
	}}
	l := NewLister(renderer, dom,
		"https://www.petfinder.com/search/%s-for-adoption/us/ny/newyork/?distance=anywhere&page=%d",
		zap.NewNop())

	links, err := l.ListPage(context.Background(), 7, "dog")
	require.NoError(t, err)

	require.Len(t, renderer.rendered, 1)
	assert.Equal(t,
		"https://www.petfinder.com/search/dogs-for-adoption/us/ny/newyork/?distance=anywhere&page=7",
		renderer.rendered[0])

	assert.Equal(t, []string{
		"https://www.petfinder.com/dog/rex-123/ny/new-york/details/",
		"https://www.petfinder.com/dog/spot-456/",
	}, links)
}
