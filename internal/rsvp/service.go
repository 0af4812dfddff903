// Package rsvp は出欠回答のドメインロジックを提供する。
package rsvp

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/weddingrsvp/internal/auth"
	"github.com/hitoshi/weddingrsvp/internal/database"
	"github.com/hitoshi/weddingrsvp/internal/identity"
	"github.com/hitoshi/weddingrsvp/internal/metrics"
	"github.com/hitoshi/weddingrsvp/internal/model"
	"github.com/hitoshi/weddingrsvp/internal/repository"
)

// Store はリクエストごとのハンドルを払い出す。*database.Gatewayが満たす。
type Store interface {
	Open(ctx context.Context, mode database.Mode) (*database.Handle, error)
}

// SelfResult はログイン中の利用者本人の招待客情報。
type SelfResult struct {
	Person    *model.Invitee
	Household *model.Household
}

// Service は出欠回答のサービス層。
// 呼び出しごとにハンドルを1つ開き、すべての終了経路で閉じる。
type Service struct {
	store   Store
	metrics metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store Store, mc metrics.MetricsCollector) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Service{store: store, metrics: mc}
}

// repos はハンドル1つ分のリポジトリ群。
type repos struct {
	people     repository.PeopleRepository
	households repository.HouseholdRepository
	sessions   repository.SessionRepository
}

func newRepos(h *database.Handle) repos {
	return repos{
		people:     repository.NewPeopleRepo(h),
		households: repository.NewHouseholdRepo(h),
		sessions:   repository.NewSessionRepo(h),
	}
}

// GetSelf は利用者本人の招待客と世帯を返す。
// 名前照合で特定できた場合はsocial_emailを紐付け、次回以降は高速パスで引けるようにする。
func (s *Service) GetSelf(ctx context.Context, id auth.Identity) (*SelfResult, error) {
	h, err := s.store.Open(ctx, database.ReadWrite)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	r := newRepos(h)
	person, household, err := s.resolveCaller(ctx, r, id, true)
	if err != nil {
		return nil, err
	}
	if person == nil {
		return nil, model.NewPersonNotFoundError()
	}
	return &SelfResult{Person: person, Household: household}, nil
}

// UpdateSelf は本人の出欠を更新する。
// 対象IDに利用者のsocial_emailが紐付いていない場合は403を返す。
func (s *Service) UpdateSelf(ctx context.Context, id auth.Identity, personID int64, inPerson bool) error {
	h, err := s.store.Open(ctx, database.ReadWrite)
	if err != nil {
		return err
	}
	defer h.Close()

	people := repository.NewPeopleRepo(h)
	ok, err := people.ValidateSocialEmail(ctx, id.Email, personID)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewForbiddenError(personID)
	}

	if err := people.UpdateInPerson(ctx, personID, inPerson); err != nil {
		return err
	}
	return nil
}

// GetGroup は利用者の世帯に所属する本人以外の招待客を返す。
// 世帯に所属していない場合は空の一覧を返す。
func (s *Service) GetGroup(ctx context.Context, id auth.Identity) ([]model.Invitee, error) {
	h, err := s.store.Open(ctx, database.ReadOnly)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	r := newRepos(h)
	person, _, err := s.resolveCaller(ctx, r, id, false)
	if err != nil {
		return nil, err
	}
	if person == nil {
		return nil, model.NewPersonNotFoundError()
	}
	if person.ContactGroup == nil {
		return []model.Invitee{}, nil
	}

	members, err := r.people.ListGroupMembers(ctx, *person.ContactGroup, person.ID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []model.Invitee{}
	}
	return members, nil
}

// UpdateGroup は世帯の招待客の出欠をまとめて更新し、更新件数を返す。
//
// 世帯外のIDが1つでも含まれる場合は書き込み前に403を返す。
// 各行の更新は並行に発行してすべての完了を待つ。トランザクションは使わないため、
// 途中で失敗すると一部の行だけが更新された状態になる。
func (s *Service) UpdateGroup(ctx context.Context, id auth.Identity, updates []model.GroupUpdate) (int, error) {
	h, err := s.store.Open(ctx, database.ReadWrite)
	if err != nil {
		return 0, err
	}
	defer h.Close()

	r := newRepos(h)
	person, _, err := s.resolveCaller(ctx, r, id, false)
	if err != nil {
		return 0, err
	}
	if person == nil {
		return 0, model.NewPersonNotFoundError()
	}

	members := map[int64]struct{}{}
	if person.ContactGroup != nil {
		members, err = r.people.MemberIDs(ctx, *person.ContactGroup)
		if err != nil {
			return 0, err
		}
	}
	for _, u := range updates {
		if _, ok := members[u.ID]; !ok {
			slog.Warn("group update outside household rejected",
				slog.String("email", id.Email),
				slog.Int64("person_id", person.ID),
				slog.Int64("target_id", u.ID),
			)
			return 0, model.NewOutsideGroupError(u.ID)
		}
	}

	var g errgroup.Group
	for _, u := range updates {
		g.Go(func() error {
			return r.people.UpdateInPersonBulk(ctx, u.ID, u.InPerson, person.ID)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	s.metrics.RecordGroupUpdate(len(updates))
	return len(updates), nil
}

// ListPeople は全招待客を世帯情報付きで返す。管理者用。
func (s *Service) ListPeople(ctx context.Context) ([]model.InviteeWithHousehold, error) {
	h, err := s.store.Open(ctx, database.ReadOnly)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	people, err := repository.NewPeopleRepo(h).ListWithHouseholds(ctx)
	if err != nil {
		return nil, err
	}
	if people == nil {
		people = []model.InviteeWithHousehold{}
	}
	return people, nil
}

// ListSessions は全セッションを新しい順に返す。管理者用。
func (s *Service) ListSessions(ctx context.Context) ([]model.SessionEntry, error) {
	return s.listSessions(ctx, func(r repository.SessionRepository) ([]model.SessionEntry, error) {
		return r.List(ctx)
	})
}

// ListNewPeople はまだ招待客に紐付いていないログイン利用者を返す。管理者用。
func (s *Service) ListNewPeople(ctx context.Context) ([]model.SessionEntry, error) {
	return s.listSessions(ctx, func(r repository.SessionRepository) ([]model.SessionEntry, error) {
		return r.ListUnmatched(ctx)
	})
}

func (s *Service) listSessions(ctx context.Context, list func(repository.SessionRepository) ([]model.SessionEntry, error)) ([]model.SessionEntry, error) {
	h, err := s.store.Open(ctx, database.ReadOnly)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	sessions, err := list(repository.NewSessionRepo(h))
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []model.SessionEntry{}
	}
	return sessions, nil
}

// resolveCaller はログイン中の利用者を招待客リストから特定する。
//
// 紐付け済みのsocial_emailがあればそれを使う。なければ連絡先メールアドレスから世帯を引き、
// 氏名のLIKE検索で得た候補をidentity.Resolveで絞り込む。
// 特定できた行に別のメールアドレスが紐付いていた場合は特定できなかったものとして扱う。
// bindがtrueの場合、特定できた行にsocial_emailを紐付ける。
func (s *Service) resolveCaller(ctx context.Context, r repos, id auth.Identity, bind bool) (*model.Invitee, *model.Household, error) {
	person, err := r.people.FindBySocialEmail(ctx, id.Email)
	if err != nil {
		return nil, nil, err
	}
	if person != nil {
		household, err := s.householdOf(ctx, r, person)
		if err != nil {
			return nil, nil, err
		}
		s.metrics.RecordResolution(metrics.ResolutionFastPath)
		return person, household, nil
	}

	household, err := r.households.FindByEmail(ctx, id.Email)
	if err != nil {
		return nil, nil, err
	}

	begin, end := identity.NamePattern(id.Name)
	if begin == "" {
		s.metrics.RecordResolution(metrics.ResolutionUnresolved)
		return nil, household, nil
	}
	candidates, err := r.people.ListByNamePattern(ctx, begin, end)
	if err != nil {
		return nil, nil, err
	}

	person = identity.Resolve(candidates, id.Name, household)
	if person == nil {
		s.metrics.RecordResolution(metrics.ResolutionUnresolved)
		return nil, household, nil
	}

	bound := person.SocialEmail == "" || person.SocialEmail == id.Email
	if bound && bind {
		bound, err = r.people.BindSocialEmail(ctx, person.ID, id.Email)
		if err != nil {
			return nil, nil, err
		}
	}
	if !bound {
		slog.Warn("invitee already bound to another email",
			slog.String("email", id.Email),
			slog.Int64("person_id", person.ID),
		)
		s.metrics.RecordResolution(metrics.ResolutionBindRefused)
		return nil, household, nil
	}
	if bind {
		person.SocialEmail = id.Email
	}

	if household == nil {
		household, err = s.householdOf(ctx, r, person)
		if err != nil {
			return nil, nil, err
		}
	}
	s.metrics.RecordResolution(metrics.ResolutionResolved)
	return person, household, nil
}

func (s *Service) householdOf(ctx context.Context, r repos, person *model.Invitee) (*model.Household, error) {
	if person.ContactGroup == nil {
		return nil, nil
	}
	household, err := r.households.FindByID(ctx, *person.ContactGroup)
	if err != nil {
		return nil, fmt.Errorf("世帯の取得に失敗しました: %w", err)
	}
	return household, nil
}
