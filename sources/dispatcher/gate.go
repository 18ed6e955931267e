package dispatcher

import "chaldea/sources/platform"

// verdict is a gate rejection: a metrics reason and the message id shown to the user.
type verdict struct {
	reason  string
	message string
}

// admit applies the permission checks in a fixed order. Owners pass every check.
func (x *Dispatcher) admit(ctx *Context) (verdict, bool) {
	if ctx.IsOwner() {
		return verdict{}, true
	}

	group := platform.IsGroupKind(ctx.Response.Chat().Type)

	switch ctx.Meta.tier() {
	case TierAdministrator:
		if !group {
			return verdict{"administrator_only", "MsgAdministratorOnly"}, false
		}
		admin, err := x.members.IsAdmin(ctx.Log, ctx.Instance, ctx.ChatID, ctx.UserID)
		if err != nil {
			return verdict{"admin_unverified", "MsgAdminUnverified"}, false
		}
		if !admin {
			return verdict{"not_group_admin", "MsgNotGroupAdmin"}, false
		}
	case TierOwner, TierAdmin:
		return verdict{"owner_only", "MsgOwnerOnly"}, false
	case TierVIP:
		if !ctx.Store.IsVIP(ctx.UserID) {
			return verdict{"vip_only", "MsgVipOnly"}, false
		}
	case TierGroup:
		if !group {
			return verdict{"group_only", "MsgGroupOnly"}, false
		}
	case TierPrivate:
		if ctx.Response.Chat().Type != platform.ChatPrivate {
			return verdict{"private_only", "MsgPrivateOnly"}, false
		}
	}

	return verdict{}, true
}
