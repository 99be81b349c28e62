package auth

import (
	"strings"

	"github.com/hitoshi/jobboard/internal/model"
)

// ポリシー名
const (
	PolicyStrict    = "strict"
	PolicyDirectory = "directory"
)

// UserDirectory はメールアドレスからユーザーを引くためのインターフェース。
// store.Store と store.Tx が満たす。
type UserDirectory interface {
	UserByEmail(email string) (model.User, bool)
}

// Resolution はロール解決の結果。
// Knownがfalseの場合、Userは未登録でありログイン時に作成する必要がある。
type Resolution struct {
	Email string
	Role  model.Role
	User  model.User
	Known bool
}

// Resolver はメールアドレスをロールに対応付ける。
type Resolver interface {
	Resolve(dir UserDirectory, email string) (Resolution, error)
	Policy() string
}

// NormalizeEmail はログイン入力を保存用の形に揃える（前後空白除去・小文字化）。
func NormalizeEmail(email string) string {
	return model.NormalizeEmail(email)
}

// StrictResolver は登録済みユーザーのみログインを許可する。
// ロールはユーザーレコードから決まる。
type StrictResolver struct{}

// NewStrictResolver はStrictResolverを生成する。
func NewStrictResolver() StrictResolver {
	return StrictResolver{}
}

// Policy はポリシー名を返す。
func (StrictResolver) Policy() string { return PolicyStrict }

// Resolve は登録済みユーザーを検索する。未登録の場合はUnauthorizedを返す。
func (StrictResolver) Resolve(dir UserDirectory, email string) (Resolution, error) {
	e := NormalizeEmail(email)
	if e == "" {
		return Resolution{}, model.NewUnauthorizedError()
	}
	u, ok := dir.UserByEmail(e)
	if !ok {
		return Resolution{}, model.NewUnauthorizedError()
	}
	return Resolution{Email: e, Role: u.Role, User: u, Known: true}, nil
}

// DirectoryConfig は許可リストと社内ドメインの設定。
type DirectoryConfig struct {
	AdminEmails     []string
	ManagerEmails   []string
	RecruiterEmails []string
	CompanyDomain   string
}

// DefaultDirectoryConfig はデモ用の許可リストを返す。
func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		AdminEmails:     []string{"admin@company.com"},
		ManagerEmails:   []string{"manager@company.com", "manager2@company.com"},
		RecruiterEmails: []string{"recruiter@company.com", "recruiter2@company.com"},
		CompanyDomain:   "company.com",
	}
}

// DirectoryResolver は許可リストと社内ドメインからロールを推定する。
// 登録済みユーザーはレコードのロールを優先する。
type DirectoryResolver struct {
	admins     map[string]struct{}
	managers   map[string]struct{}
	recruiters map[string]struct{}
	suffix     string
}

// NewDirectoryResolver はDirectoryResolverを生成する。
func NewDirectoryResolver(cfg DirectoryConfig) *DirectoryResolver {
	r := &DirectoryResolver{
		admins:     toSet(cfg.AdminEmails),
		managers:   toSet(cfg.ManagerEmails),
		recruiters: toSet(cfg.RecruiterEmails),
	}
	if d := model.Fold(cfg.CompanyDomain); d != "" {
		r.suffix = "@" + strings.TrimPrefix(d, "@")
	}
	return r
}

// Policy はポリシー名を返す。
func (r *DirectoryResolver) Policy() string { return PolicyDirectory }

// DetectRole は 管理者リスト → マネージャーリスト → リクルーターリスト → 社内ドメイン の順に判定する。
// 社内ドメインに一致した場合はmanagerになる。
func (r *DirectoryResolver) DetectRole(email string) (model.Role, bool) {
	e := model.Fold(email)
	if e == "" {
		return "", false
	}
	if _, ok := r.admins[e]; ok {
		return model.RoleAdmin, true
	}
	if _, ok := r.managers[e]; ok {
		return model.RoleManager, true
	}
	if _, ok := r.recruiters[e]; ok {
		return model.RoleRecruiter, true
	}
	if r.suffix != "" && strings.HasSuffix(e, r.suffix) {
		return model.RoleManager, true
	}
	return "", false
}

// Resolve はロールを解決する。いずれにも該当しない場合はUnauthorizedを返す。
func (r *DirectoryResolver) Resolve(dir UserDirectory, email string) (Resolution, error) {
	e := NormalizeEmail(email)
	if e == "" {
		return Resolution{}, model.NewUnauthorizedError()
	}
	if u, ok := dir.UserByEmail(e); ok {
		return Resolution{Email: e, Role: u.Role, User: u, Known: true}, nil
	}
	role, ok := r.DetectRole(e)
	if !ok {
		return Resolution{}, model.NewUnauthorizedError()
	}
	return Resolution{Email: e, Role: role}, nil
}

// NewResolver はポリシー名からResolverを生成する。
// 不明なポリシー名の場合はfalseを返す。
func NewResolver(policy string, cfg DirectoryConfig) (Resolver, bool) {
	switch policy {
	case PolicyStrict, "":
		return NewStrictResolver(), true
	case PolicyDirectory:
		return NewDirectoryResolver(cfg), true
	default:
		return nil, false
	}
}

func toSet(emails []string) map[string]struct{} {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if n := model.Fold(e); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
