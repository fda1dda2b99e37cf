// Package catalog はカタログファイルの読み込みと価格可視性フィルタを提供する。
//
// カタログはカテゴリごとのJSONファイルとして外部の担当者が管理する
// 協業境界であり、本サービスは読み取り専用でアクセスする。
// ファイルの更新時刻（mtime）ベースのキャッシュで再読み込みを行う。
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/tienda/internal/model"
)

// SanitizerService はカタログテキストのサニタイズに必要なインターフェース。
type SanitizerService interface {
	Sanitize(rawHTML string) string
}

// Store はカテゴリ別カタログファイルのキャッシュ付きストア。
// 商品説明・お手入れ情報は読み込み時にサニタイズされる。
type Store struct {
	dir       string
	sanitizer SanitizerService
	ttl       time.Duration

	mu    sync.RWMutex
	cache map[string]*categoryEntry
}

// categoryEntry はカテゴリ1件分のキャッシュエントリ。
// 公開後は変更しない。更新時はエントリごと差し替える。
type categoryEntry struct {
	products  []*model.Product
	modTime   time.Time
	checkedAt time.Time
}

// NewStore はStoreを生成する。
// ttlはmtime確認（stat）の最小間隔。ttl内の連続アクセスはキャッシュを返す。
func NewStore(dir string, sanitizer SanitizerService, ttl time.Duration) *Store {
	return &Store{
		dir:       dir,
		sanitizer: sanitizer,
		ttl:       ttl,
		cache:     make(map[string]*categoryEntry),
	}
}

// ListByCategory はカテゴリの商品一覧を返す。
// カテゴリファイルが存在しない場合はCATEGORY_NOT_FOUNDエラーを返す。
func (s *Store) ListByCategory(category string) ([]*model.Product, error) {
	products, err := s.load(category)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// FindProduct は全カテゴリを横断して指定IDの商品を検索する。
// 見つからない場合はnilを返す（エラーにはしない）。
func (s *Store) FindProduct(id string) (*model.Product, error) {
	categories, err := s.listCategories()
	if err != nil {
		return nil, err
	}
	for _, category := range categories {
		products, err := s.load(category)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			if p.ID == id {
				return p, nil
			}
		}
	}
	return nil, nil
}

// Search は全カテゴリを横断して商品名・説明の部分一致検索を行う。
// 大文字小文字は区別しない。一致なしは空スライスを返す。
func (s *Store) Search(query string) ([]*model.Product, error) {
	categories, err := s.listCategories()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var matches []*model.Product
	for _, category := range categories {
		products, err := s.load(category)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), needle) ||
				strings.Contains(strings.ToLower(p.Description), needle) {
				matches = append(matches, p)
			}
		}
	}
	return matches, nil
}

// listCategories はカタログディレクトリ内の全カテゴリ名を返す。
// カテゴリ名は拡張子を除いたファイル名。
func (s *Store) listCategories() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}
	var categories []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		categories = append(categories, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return categories, nil
}

// load はカテゴリファイルをキャッシュ経由で読み込む。
// ttl内の再アクセスはstatを省略し、ttl経過後はmtimeが変わった場合のみ
// ファイルを再パースする。
func (s *Store) load(category string) ([]*model.Product, error) {
	now := time.Now()

	s.mu.RLock()
	entry, ok := s.cache[category]
	s.mu.RUnlock()

	if ok && now.Sub(entry.checkedAt) < s.ttl {
		return entry.products, nil
	}

	path := filepath.Join(s.dir, category+".json")
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, model.NewCategoryNotFoundError(category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalog file: %w", err)
	}

	if ok && info.ModTime().Equal(entry.modTime) {
		s.mu.Lock()
		s.cache[category] = &categoryEntry{
			products:  entry.products,
			modTime:   entry.modTime,
			checkedAt: now,
		}
		s.mu.Unlock()
		return entry.products, nil
	}

	products, err := s.parseFile(path, category)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[category] = &categoryEntry{
		products:  products,
		modTime:   info.ModTime(),
		checkedAt: now,
	}
	s.mu.Unlock()

	return products, nil
}

// parseFile はカタログファイルをパースし、テキストフィールドをサニタイズする。
func (s *Store) parseFile(path, category string) ([]*model.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var products []*model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", filepath.Base(path), err)
	}

	for _, p := range products {
		p.Category = category
		p.Description = s.sanitizer.Sanitize(p.Description)
		p.Care = s.sanitizer.Sanitize(p.Care)
	}

	return products, nil
}
