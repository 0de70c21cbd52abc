package fastly

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/pop-status-service/internal/domain"
)

// DictionaryStore keeps the serialized override map in one edge dictionary item.
//
// The dictionary API has no conditional write, so Revision is always empty and
// two concurrent read-modify-write cycles can lose one update: get(A), get(B),
// put(A), put(B) leaves only B's change. Use the redis backend where that
// matters.
type DictionaryStore struct {
	api          apiClient
	serviceID    string
	dictionaryID string
	key          string
}

// NewDictionaryStore creates a store bound to one service, dictionary, and item key.
func NewDictionaryStore(baseURL, token, serviceID, dictionaryID, key string, timeout time.Duration, logger *slog.Logger) *DictionaryStore {
	return &DictionaryStore{
		api:          newAPIClient(baseURL, token, timeout, logger),
		serviceID:    serviceID,
		dictionaryID: dictionaryID,
		key:          key,
	}
}

func (s *DictionaryStore) itemURL() string {
	return fmt.Sprintf("%s/service/%s/dictionary/%s/item/%s",
		s.api.baseURL,
		url.PathEscape(s.serviceID),
		url.PathEscape(s.dictionaryID),
		url.PathEscape(s.key),
	)
}

// Get reads the override item. A missing item is reported as Found=false.
func (s *DictionaryStore) Get(ctx context.Context) (domain.StoredOverrides, error) {
	req, err := s.api.newRequest(ctx, http.MethodGet, s.itemURL(), nil)
	if err != nil {
		return domain.StoredOverrides{}, storeErr(err)
	}

	resp, err := s.api.do(req)
	if err != nil {
		return domain.StoredOverrides{}, storeErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.StoredOverrides{}, nil
	}
	if !isSuccess(resp.StatusCode) {
		return domain.StoredOverrides{}, storeErr(statusError(resp))
	}

	return decodeItem(resp)
}

// Put upserts the override item. The revision is ignored; see the type comment.
func (s *DictionaryStore) Put(ctx context.Context, value, _ string) (domain.StoredOverrides, error) {
	form := url.Values{"item_value": {value}}
	req, err := s.api.newRequest(ctx, http.MethodPut, s.itemURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return domain.StoredOverrides{}, storeErr(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.api.do(req)
	if err != nil {
		return domain.StoredOverrides{}, storeErr(err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return domain.StoredOverrides{}, storeErr(statusError(resp))
	}

	stored, err := decodeItem(resp)
	if err != nil {
		return domain.StoredOverrides{}, err
	}
	s.api.logger.Info("override item written", "dictionary_id", s.dictionaryID, "key", s.key)
	return stored, nil
}

func decodeItem(resp *http.Response) (domain.StoredOverrides, error) {
	var it item
	if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
		return domain.StoredOverrides{}, storeErr(fmt.Errorf("%w: decode dictionary item: %w", domain.ErrMalformedPayload, err))
	}
	return domain.StoredOverrides{Value: it.ItemValue, Found: true}, nil
}

func storeErr(err error) error {
	return &domain.SourceError{Source: domain.SourceOverrideStore, Err: err}
}

// Fastly dictionary item API response type.

type item struct {
	DictionaryID string `json:"dictionary_id"`
	ServiceID    string `json:"service_id"`
	ItemKey      string `json:"item_key"`
	ItemValue    string `json:"item_value"`
}
