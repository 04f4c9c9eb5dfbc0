package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[EnsureConnectionsMessage] = (*EnsureConnectionsCommand)(nil)
	_ gocmd.Commander[ConnectMessage]           = (*ConnectCommand)(nil)
	_ gocmd.Commander[CompleteCallbackMessage]  = (*CompleteCallbackCommand)(nil)
	_ gocmd.Commander[SelectLocationMessage]    = (*SelectLocationCommand)(nil)
	_ gocmd.Commander[SetDeletionPolicyMessage] = (*SetDeletionPolicyCommand)(nil)
	_ gocmd.Commander[DisconnectMessage]        = (*DisconnectCommand)(nil)
	_ gocmd.Commander[PublishSpecialMessage]    = (*PublishSpecialCommand)(nil)
	_ gocmd.Commander[PublishSpecialAtMessage]  = (*PublishSpecialAtCommand)(nil)
	_ gocmd.Commander[RetractSpecialMessage]    = (*RetractSpecialCommand)(nil)
	_ gocmd.Commander[RunSweepMessage]          = (*RunSweepCommand)(nil)
)
