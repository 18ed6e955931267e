package settings

import (
	"chaldea/sources/platform"
	"chaldea/sources/tracing"
	"errors"
	"slices"
	"strconv"
	"time"
)

var (
	ErrAlreadyListed = errors.New("id already listed")
	ErrNotListed     = errors.New("id not listed")
)

// Settings mirrors setup/settings.json.
type Settings struct {
	Admin    []string `json:"admin"`
	Owner    []string `json:"owner"`
	Prefix   string   `json:"prefix"`
	Symbols  string   `json:"symbols"`
	TimeZone string   `json:"timeZone"`
	DevMode  bool     `json:"devMode"`
}

// VIP mirrors setup/vip.json.
type VIP struct {
	UID []string `json:"uid"`
}

// Owners is the owner list, or the admin list when no owner is configured.
func (s Settings) Owners() []string {
	if len(s.Owner) > 0 {
		return s.Owner
	}
	return s.Admin
}

func (s Settings) IsOwner(userID int64) bool {
	return slices.Contains(s.Owners(), FormatID(userID))
}

func (s Settings) IsAdmin(userID int64) bool {
	return slices.Contains(s.Admin, FormatID(userID))
}

func (s Settings) OwnerIDs() []int64 {
	return ParseIDs(s.Owners())
}

func (s Settings) AdminIDs() []int64 {
	return ParseIDs(s.Admin)
}

func (s Settings) Location() *time.Location {
	if s.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (v VIP) Has(userID int64) bool {
	return slices.Contains(v.UID, FormatID(userID))
}

// Store is the settings collaborator shared by every bot instance of the process.
type Store struct {
	settings *Document[Settings]
	vip      *Document[VIP]
	log      *tracing.Logger
}

func NewStore(settings *Document[Settings], vip *Document[VIP], log *tracing.Logger) *Store {
	return &Store{settings: settings, vip: vip, log: log}
}

func (x *Store) Settings() Settings {
	return x.settings.Get()
}

func (x *Store) VIP() VIP {
	return x.vip.Get()
}

func (x *Store) IsOwner(userID int64) bool {
	return x.settings.Get().IsOwner(userID)
}

func (x *Store) IsVIP(userID int64) bool {
	return x.vip.Get().Has(userID)
}

func (x *Store) AddAdmin(log *tracing.Logger, userID int64) error {
	defer tracing.ProfilePoint(log, "Settings add admin completed", "settings.add.admin", tracing.UserId, userID)()
	return x.settings.Update(func(s *Settings) error {
		var err error
		s.Admin, err = addID(s.Admin, userID)
		return err
	})
}

func (x *Store) RemoveAdmin(log *tracing.Logger, userID int64) error {
	defer tracing.ProfilePoint(log, "Settings remove admin completed", "settings.remove.admin", tracing.UserId, userID)()
	return x.settings.Update(func(s *Settings) error {
		var err error
		s.Admin, err = removeID(s.Admin, userID)
		return err
	})
}

func (x *Store) AddVIP(log *tracing.Logger, userID int64) error {
	defer tracing.ProfilePoint(log, "Settings add vip completed", "settings.add.vip", tracing.UserId, userID)()
	return x.vip.Update(func(v *VIP) error {
		var err error
		v.UID, err = addID(v.UID, userID)
		return err
	})
}

func (x *Store) RemoveVIP(log *tracing.Logger, userID int64) error {
	defer tracing.ProfilePoint(log, "Settings remove vip completed", "settings.remove.vip", tracing.UserId, userID)()
	return x.vip.Update(func(v *VIP) error {
		var err error
		v.UID, err = removeID(v.UID, userID)
		return err
	})
}

func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseIDs converts listed ids to numbers, skipping entries that are not integers.
func ParseIDs(list []string) []int64 {
	ids := make([]int64, 0, len(list))
	for _, value := range list {
		if id, err := platform.ParseChatID(value); err == nil {
			ids = append(ids, int64(id))
		}
	}
	return ids
}

func addID(list []string, id int64) ([]string, error) {
	value := FormatID(id)
	if slices.Contains(list, value) {
		return list, ErrAlreadyListed
	}
	return append(list, value), nil
}

func removeID(list []string, id int64) ([]string, error) {
	value := FormatID(id)
	if !slices.Contains(list, value) {
		return list, ErrNotListed
	}
	return slices.DeleteFunc(list, func(v string) bool { return v == value }), nil
}
